package accelerator

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/katalvlaran/opticorr/model"
)

// ChangeParameters renders one "name = name + (delta);" line per variable in
// insertion order. With machine set the signs are inverted: the model is fit
// to the measurement, so the machine needs the opposite trim.
func ChangeParameters(c model.Correction, machine bool) string {
	if machine {
		c = c.Negate()
	}
	var b strings.Builder
	for _, n := range c.Names() {
		if n == OrbitDPP {
			continue
		}
		v, _ := c.Get(n)
		fmt.Fprintf(&b, "%s = %s + (%.15g);\n", n, n, v)
	}

	return b.String()
}

// restrict keeps the variables of c that belong to categories, either through
// the accelerator catalog or by naming the variable literally.
func restrict(acc Accelerator, c model.Correction, categories []string) model.Correction {
	allowed := make(map[string]bool)
	for _, n := range acc.Variables(categories...) {
		allowed[n] = true
	}
	for _, cat := range categories {
		allowed[cat] = true
	}
	var out model.Correction
	for _, n := range c.Names() {
		if allowed[n] {
			v, _ := c.Get(n)
			out.Set(n, v)
		}
	}

	return out
}

// updateCorrection is the body shared by every UpdateCorrectionScript.
func updateCorrection(acc Accelerator, c model.Correction, categories []string) (string, error) {
	sel := restrict(acc, c, categories)
	base, err := acc.BaseModelScript(false)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n! correction\n")
	b.WriteString(ChangeParameters(sel, false))
	if dpp, ok := sel.Get(OrbitDPP); ok {
		dp, err := acc.UpdateDeltapScript(dpp)
		if err != nil {
			return "", err
		}
		b.WriteString("\n")
		b.WriteString(dp)
	}

	return b.String(), nil
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("accelerator: render %s: %w", t.Name(), err)
	}

	return b.String(), nil
}
