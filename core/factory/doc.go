// Package factory provides a small generic registry used to instantiate
// pluggable modules such as metrics sinks and run log backends. A module is
// described by a type string and a map of raw settings; its factory decodes
// the settings into a typed struct and returns the implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[runlog.Store]()
//	reg.Register("sqlite", func(conf map[string]any) (runlog.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return runlog.NewSQLiteStore(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "runs.db"}})
package factory
