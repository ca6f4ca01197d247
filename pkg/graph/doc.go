// Package graph materializes a dependency cache into a node-link graph.
//
// This is the wire format served to the visualization front-end and written
// by the graph command:
//
//	{
//	  "nodes": [
//	    {"id": "core@3f2a9c...", "label": "core@3f2a9c", "group": "core", "internal": true},
//	    {"id": "lodash@^4.17.21", "label": "lodash@^4.17.21", "group": "lodash"}
//	  ],
//	  "edges": [{"from": "core@3f2a9c...", "to": "lodash@^4.17.21"}]
//	}
//
// # Display Modes
//
//	graph.DisplayInternal  // organization repositories only
//	graph.DisplayAll       // include external packages
//
// # Usage
//
//	g := graph.FromCache(cache.Entries(), "graasp", graph.DisplayInternal)
//	graph.Write(g, os.Stdout)
package graph
