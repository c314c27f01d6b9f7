// Package factory provides a small generic registry used to instantiate
// modules such as metrics sinks from configuration. A module is described by
// a type string and a map of raw settings; factories decode the settings
// into typed structs and return the concrete implementation.
//
//	reg := factory.NewRegistry[io.Writer]()
//	reg.Register("file", func(conf map[string]any) (io.Writer, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Create(c.Path)
//	})
package factory
