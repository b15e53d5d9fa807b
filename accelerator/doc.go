// Package accelerator describes the machines a correction can run against.
//
// Every machine implements Accelerator: it classifies elements, resolves
// variable categories into corrector variable names and renders the
// simulation-engine scripts used around a correction (base sequence, model
// update from a correction, momentum-offset update). Variants are LHC, PSB
// and Generic; New selects one by name at configuration time.
package accelerator
