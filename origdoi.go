// Package origdoi collects expocode, landing page and DOI triplets for ocean
// carbon datasets from archived XML metadata.
package origdoi

const AppName = "origdoi"

var Version = "0.1.0"
