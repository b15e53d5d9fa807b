// Package model defines the model-building collaborator consumed by the
// correction loop and a Linear reference builder.
//
// A Builder turns a cumulative corrector setting into the optics that a
// simulation engine would produce for it. Production deployments wrap an
// external engine; tests and dry runs use Linear, which shifts a base frame
// by a fixed sensitivity table with an optional quadratic term.
package model
