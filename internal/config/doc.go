// Package config provides configuration parsing for approutes projects.
//
// The configuration is stored in approutes.json (or approutes.yaml) at the
// project root. Every field is optional.
//
// # Configuration File Structure
//
//	{
//	  "appDir": "src/app",
//	  "pageExtensions": ["tsx", "ts", "jsx", "js", "mdx"],
//	  "build": {
//	    "nodeRoot": ".next/server",
//	    "clientRelativeRoot": ".next/client",
//	    "clientOutputRoot": ".next/static",
//	    "graph": ".next/asset-graph.json",
//	    "concurrency": 16,
//	    "manifest": "server-paths.json"
//	  },
//	  "cache": {"size": 1024},
//	  "watch": {"debounce": "100ms", "ignore": ["*.swp"]},
//	  "s3": {"bucket": "assets", "prefix": "deploys/42/", "region": "us-east-1"},
//	  "metrics": {"file": "metrics.prom"}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Extensions:", cfg.Extensions())
package config
