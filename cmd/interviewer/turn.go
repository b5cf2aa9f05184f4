package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/interviewflow/pkg/interview"
)

// turnFile is the on-disk description of an interview.
//
//	interview:
//	  id: iv-1
//	  title: Backend Engineer
//	  description: Build payment APIs.
//	  duration: 45m
//	  skills: [go, sql]
//	  questions: ["Explain goroutines."]
//	candidate:   {name: Sam, background: Five years of Go.}
//	interviewer: {name: Alex, company: Acme}
type turnFile struct {
	Interview struct {
		ID          string   `yaml:"id"`
		Title       string   `yaml:"title"`
		Description string   `yaml:"description"`
		Duration    string   `yaml:"duration"`
		Skills      []string `yaml:"skills"`
		Questions   []string `yaml:"questions"`
	} `yaml:"interview"`
	Candidate struct {
		Name       string `yaml:"name"`
		Background string `yaml:"background"`
	} `yaml:"candidate"`
	Interviewer struct {
		Name    string `yaml:"name"`
		Company string `yaml:"company"`
	} `yaml:"interviewer"`
}

// TurnFlags carry the interview context shared by turn-running commands.
type TurnFlags struct {
	Thread    string `short:"t" required:"" help:"Thread identifier." env:"INTERVIEWFLOW_THREAD"`
	Interview string `short:"i" help:"Path to the interview description (YAML)." type:"existingfile"`
	Candidate string `help:"Candidate name. Overrides the interview file."`
}

// turn loads the interview file and applies flag overrides.
func (f TurnFlags) turn() (interview.Turn, error) {
	var turn interview.Turn
	if f.Interview != "" {
		var err error
		turn, err = loadTurn(f.Interview)
		if err != nil {
			return interview.Turn{}, err
		}
	}
	if f.Candidate != "" {
		turn.Candidate.Name = f.Candidate
	}
	return turn, nil
}

func loadTurn(path string) (interview.Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return interview.Turn{}, fmt.Errorf("read interview: %w", err)
	}
	return parseTurn(data)
}

func parseTurn(data []byte) (interview.Turn, error) {
	var f turnFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return interview.Turn{}, fmt.Errorf("parse interview: %w", err)
	}

	var duration time.Duration
	if f.Interview.Duration != "" {
		d, err := time.ParseDuration(f.Interview.Duration)
		if err != nil {
			return interview.Turn{}, fmt.Errorf("parse interview duration: %w", err)
		}
		duration = d
	}

	return interview.Turn{
		Interview: interview.Interview{
			ID:          f.Interview.ID,
			Title:       f.Interview.Title,
			Description: f.Interview.Description,
			Duration:    duration,
			Skills:      f.Interview.Skills,
			Questions:   f.Interview.Questions,
		},
		Candidate: interview.Candidate{
			Name:       f.Candidate.Name,
			Background: f.Candidate.Background,
		},
		Interviewer: interview.Interviewer{
			Name:    f.Interviewer.Name,
			Company: f.Interviewer.Company,
		},
	}, nil
}
