// Package hcl loads pipeline declarations from HCL files into the
// format-agnostic config model.
//
// A pipeline file may contain these top-level blocks:
//
//	settings { workers = 8 }
//	compartment "ingest" {}
//	node "table_source" "numbers" {
//	  compartment = "ingest"
//	  params { rows = [{ item = 1, id = "a" }] }
//	  iteration { mode = "merging" }
//	}
//	connect {
//	  from = "ingest/numbers.out"
//	  to   = "report.in"
//	}
//
// Parameter expressions are evaluated without variables but with the
// go-cty standard function library (upper, concat, range, jsonencode...).
package hcl
