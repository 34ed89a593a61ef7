// Package hcl_adapter loads pipeline files written in HCL into the
// format-agnostic config.Model.
//
// A pipeline is made of `settings`, `sweep`, `rule` and `target` blocks,
// spread over any number of *.hcl files:
//
//	sweep "seed" {
//	  values = range(1, 11)
//	}
//
//	rule "simulate" {
//	  output  = "sims/sim_{seed}.trees"
//	  threads = 2
//	  shell   = "simulate --seed {seed} > {output}"
//	}
//
//	rule "summarize" {
//	  output = "results/summary.txt"
//	  input  = expand("sims/sim_{seed}.trees")
//	  shell  = "cat {input} > {output}"
//	}
//
// Rule and target attributes can read sweeps as `sweep.<name>` and call
// expand(). HCL interpolation still applies inside strings, so a literal
// `${` in a shell script is written `$${`.
package hcl_adapter
