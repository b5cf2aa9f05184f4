// Package registry provides a generic thread-safe registry for values
// indexed by key.
//
// The interview engine keeps its tool dispatch table in one:
//
//	tools := registry.New[string, Tool]()
//	if !tools.Add("get_server_time", timeTool) {
//	    return fmt.Errorf("duplicate tool %q", "get_server_time")
//	}
//
//	tool, ok := tools.Get(call.Name)
//
// Sorted returns values in key order, which keeps the tool list offered to
// the model stable across requests.
//
// All methods are safe for concurrent use. Range iterates over a snapshot,
// so fn may mutate the registry.
package registry
