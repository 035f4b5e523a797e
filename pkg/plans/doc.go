// Package plans provides the static plan catalog used to look up monthly
// free-credit amounts.
//
// Plans come from a Source. NewInMemSource serves a fixed map and
// NewYAMLFileSource reads a YAML document:
//
//	plans:
//	  - id: free
//	    name: Free
//	    monthly_credits: 100
//	  - id: pro
//	    name: Pro
//	    monthly_credits: 5000
//
// NewCatalog validates the loaded plans once. A Catalog satisfies
// credits.PlanLookup.
package plans
