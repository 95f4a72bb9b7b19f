// Package config provides configuration parsing for the blospray CLI.
//
// The configuration is stored in blospray.json, normally next to the scene
// files. Every field is optional; command-line flags override it.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "render01",
//	    "port": 5909,
//	    "dialTimeout": "5s",
//	    "idleTimeout": "2m"
//	  },
//	  "render": {
//	    "renderer": "pathtracer",
//	    "samples": 64,
//	    "updateRate": 4,
//	    "format": "rgba32",
//	    "clear": "keep_plugin_instances",
//	    "substitution": "fail",
//	    "pollInterval": "10ms"
//	  },
//	  "output": {
//	    "dir": "renders",
//	    "s3": {"bucket": "frames", "prefix": "shot010/", "region": "eu-west-1"}
//	  },
//	  "preview": {"addr": "localhost:8090"},
//	  "history": {"path": ".blospray/history.db"},
//	  "log": {"level": "info", "format": "text"}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s := session.New(cfg.Session())
package config
