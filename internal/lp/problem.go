package lp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is one constraint: Coeffs · x (<= or =) RHS.
type Row struct {
	Coeffs []float64
	RHS    float64
}

// Problem is a maximisation LP over non-negative variables:
//
//	maximise   Objective · x
//	subject to Inequalities[k]: Coeffs · x <= RHS
//	           Equalities[k]:   Coeffs · x  = RHS
//	           x >= 0
type Problem struct {
	Objective    []float64
	Inequalities []Row
	Equalities   []Row
}

// NumVariables is the width of the objective row.
func (p *Problem) NumVariables() int {
	return len(p.Objective)
}

// Text renders the problem in the solver's wire grammar:
//
//	"<obj>;<ineq>,<ineq>,...,;<eq>,...,;"
//
// Coefficients are space separated. Every constraint row carries its RHS as
// the final value and is terminated by a comma. An empty block leaves
// nothing between its semicolons.
func (p *Problem) Text() string {
	var b strings.Builder
	writeValues(&b, p.Objective)
	b.WriteByte(';')
	for _, r := range p.Inequalities {
		writeRow(&b, r)
	}
	b.WriteByte(';')
	for _, r := range p.Equalities {
		writeRow(&b, r)
	}
	b.WriteByte(';')
	return b.String()
}

func (p *Problem) String() string { return p.Text() }

func writeRow(b *strings.Builder, r Row) {
	writeValues(b, r.Coeffs)
	b.WriteByte(' ')
	b.WriteString(FormatNumber(r.RHS))
	b.WriteByte(',')
}

func writeValues(b *strings.Builder, vs []float64) {
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(FormatNumber(v))
	}
}

// FormatNumber prints v the way the solver's front end always has: the
// shortest decimal that round-trips, plain notation for magnitudes in
// [1e-6, 1e21), exponent notation otherwise, and no negative zero.
func FormatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	abs := math.Abs(v)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	// Go pads exponents to two digits ("1e-07"); the wire form does not.
	mant, exp, ok := strings.Cut(s, "e")
	if !ok || len(exp) < 2 {
		return s
	}
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + sign + digits
}

// ParseProblem reads the wire grammar produced by Problem.Text. Whitespace
// around rows is tolerated; trailing row separators are optional.
func ParseProblem(text string) (*Problem, error) {
	text = strings.TrimSpace(text)
	blocks := strings.Split(text, ";")
	// A well formed text ends with ';', giving an empty fourth element.
	if len(blocks) == 4 && strings.TrimSpace(blocks[3]) == "" {
		blocks = blocks[:3]
	}
	if len(blocks) != 3 {
		return nil, fmt.Errorf("%w: want 3 ';'-separated blocks, got %d", ErrMalformedProblem, len(blocks))
	}

	obj, err := parseValues(blocks[0])
	if err != nil {
		return nil, fmt.Errorf("%w: objective: %v", ErrMalformedProblem, err)
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("%w: empty objective", ErrMalformedProblem)
	}

	p := &Problem{Objective: obj}
	if p.Inequalities, err = parseRows(blocks[1], len(obj)); err != nil {
		return nil, fmt.Errorf("%w: inequality %v", ErrMalformedProblem, err)
	}
	if p.Equalities, err = parseRows(blocks[2], len(obj)); err != nil {
		return nil, fmt.Errorf("%w: equality %v", ErrMalformedProblem, err)
	}
	return p, nil
}

func parseRows(block string, width int) ([]Row, error) {
	var rows []Row
	for i, raw := range strings.Split(block, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		vals, err := parseValues(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", i, err)
		}
		if len(vals) != width+1 {
			return nil, fmt.Errorf("row %d: got %d values, want %d coefficients plus rhs", i, len(vals), width)
		}
		rows = append(rows, Row{Coeffs: vals[:width], RHS: vals[width]})
	}
	return rows, nil
}

func parseValues(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}
