package iteration

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vk/slotflow/internal/datatable"
)

// Generator builds iteration steps from input tables.
type Generator struct {
	opts Options
}

// NewGenerator returns a generator configured by opts.
func NewGenerator(opts Options) *Generator {
	if len(opts.Columns) > 0 {
		opts.Strategy = Custom
	}
	return &Generator{opts: opts}
}

// Options returns the generator's effective options.
func (g *Generator) Options() Options { return g.opts }

// group collects row indices per slot for one key.
type group struct {
	key  string
	rows map[string][]int
}

// Generate partitions the rows of inputs into steps. Nil tables count as
// empty. With no inputs at all a single empty step is produced, so source
// nodes run once.
func (g *Generator) Generate(inputs map[string]*datatable.Table) (*Result, error) {
	slots := make([]string, 0, len(inputs))
	for name := range inputs {
		slots = append(slots, name)
	}
	sort.Strings(slots)

	if len(slots) == 0 {
		return &Result{Steps: []*Step{{Index: 0, Rows: map[string][]int{}}}}, nil
	}

	if len(slots) == 1 && g.opts.Mode == Iterating {
		return g.finish(inputs, slots, g.splitRows(inputs, slots))
	}

	var groups []*group
	var warnings []Warning
	switch g.opts.Strategy {
	case MergeAll:
		groups = []*group{g.allRows(inputs, slots)}
	case SplitAll:
		groups = g.splitRows(inputs, slots)
	default:
		columns := g.matchingColumns(inputs, slots)
		if len(columns) == 0 {
			groups, warnings = g.withoutColumns(inputs, slots)
		} else {
			groups, warnings = g.byColumns(inputs, slots, columns)
		}
	}

	res, err := g.finish(inputs, slots, groups)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(warnings, res.Warnings...)
	return res, nil
}

// matchingColumns resolves the strategy to a concrete column list.
func (g *Generator) matchingColumns(inputs map[string]*datatable.Table, slots []string) []string {
	if g.opts.Strategy == Custom {
		cols := append([]string(nil), g.opts.Columns...)
		sort.Strings(cols)
		return cols
	}

	counts := make(map[string]int)
	for _, slot := range slots {
		if inputs[slot] == nil {
			continue
		}
		for _, c := range inputs[slot].TextAnnotationColumns() {
			counts[c]++
		}
	}

	// A single slot has nothing to be shared with, so all of its columns count.
	need := 2
	if len(slots) == 1 {
		need = 1
	}
	if g.opts.Strategy == Intersection || g.opts.Strategy == PrefixHashIntersection {
		need = len(slots)
	}
	hashOnly := g.opts.Strategy == PrefixHashUnion || g.opts.Strategy == PrefixHashIntersection

	var cols []string
	for c, n := range counts {
		if n < need {
			continue
		}
		if hashOnly && !strings.HasPrefix(c, "#") {
			continue
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// rowKey encodes the values of the matching columns a row carries. The
// second result is false when the row carries none of them.
func rowKey(row datatable.Row, columns []string) (string, bool) {
	var sb strings.Builder
	found := false
	for _, c := range columns {
		v, ok := row.Text(c)
		if !ok {
			continue
		}
		found = true
		sb.WriteString(strconv.Itoa(len(c)))
		sb.WriteByte(':')
		sb.WriteString(c)
		sb.WriteByte('=')
		sb.WriteString(strconv.Itoa(len(v)))
		sb.WriteByte(':')
		sb.WriteString(v)
		sb.WriteByte(';')
	}
	return sb.String(), found
}

// keyLabel renders a key built by rowKey as "col=value" pairs for messages.
// Keys in any other form are returned unchanged.
func keyLabel(key string) string {
	var pairs []string
	rest := key
	for rest != "" {
		col, r, ok := cutLenPrefixed(rest, '=')
		if !ok {
			return key
		}
		val, r, ok := cutLenPrefixed(r, ';')
		if !ok {
			return key
		}
		pairs = append(pairs, col+"="+val)
		rest = r
	}
	return strings.Join(pairs, ", ")
}

// cutLenPrefixed reads "<n>:<n bytes>" followed by sep.
func cutLenPrefixed(s string, sep byte) (string, string, bool) {
	head, tail, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", false
	}
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 || n >= len(tail) || tail[n] != sep {
		return "", "", false
	}
	return tail[:n], tail[n+1:], true
}

func (g *Generator) byColumns(inputs map[string]*datatable.Table, slots []string, columns []string) ([]*group, []Warning) {
	byKey := make(map[string]*group)
	ungrouped := make(map[string][]int)

	for _, slot := range slots {
		tbl := inputs[slot]
		for i := 0; i < tbl.Len(); i++ {
			key, ok := rowKey(tbl.Row(i), columns)
			if !ok {
				ungrouped[slot] = append(ungrouped[slot], i)
				continue
			}
			grp, exists := byKey[key]
			if !exists {
				grp = &group{key: key, rows: make(map[string][]int)}
				byKey[key] = grp
			}
			grp.rows[slot] = append(grp.rows[slot], i)
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	groups := make([]*group, 0, len(keys)+1)
	for _, k := range keys {
		groups = append(groups, byKey[k])
	}

	implicit, warnings := g.implicitGroup(slots, ungrouped)
	if implicit != nil {
		groups = append(groups, implicit)
	}
	return groups, warnings
}

// implicitGroup applies the single-row fallback to rows without any
// matching annotation: they pair up only when every slot has exactly one
// such row. Anything else is reported rather than dropped silently.
func (g *Generator) implicitGroup(slots []string, ungrouped map[string][]int) (*group, []Warning) {
	if len(ungrouped) == 0 {
		return nil, nil
	}
	if len(slots) == 1 && g.opts.Mode == Merging {
		return &group{rows: ungrouped}, nil
	}
	single := true
	for _, slot := range slots {
		if len(ungrouped[slot]) != 1 {
			single = false
			break
		}
	}
	if single {
		return &group{rows: ungrouped}, nil
	}

	var warnings []Warning
	for _, slot := range slots {
		if rows := ungrouped[slot]; len(rows) > 0 {
			warnings = append(warnings, Warning{
				Slot:   slot,
				Rows:   rows,
				Reason: "rows carry no matching annotation and cannot be paired",
			})
		}
	}
	return nil, warnings
}

// withoutColumns handles inputs that share no matching column at all.
func (g *Generator) withoutColumns(inputs map[string]*datatable.Table, slots []string) ([]*group, []Warning) {
	all := g.allRows(inputs, slots)
	if g.opts.Mode == Merging {
		return []*group{all}, nil
	}
	grp, warnings := g.implicitGroup(slots, all.rows)
	if grp == nil {
		return nil, warnings
	}
	return []*group{grp}, warnings
}

func (g *Generator) allRows(inputs map[string]*datatable.Table, slots []string) *group {
	grp := &group{rows: make(map[string][]int)}
	for _, slot := range slots {
		for i := 0; i < inputs[slot].Len(); i++ {
			grp.rows[slot] = append(grp.rows[slot], i)
		}
	}
	return grp
}

func (g *Generator) splitRows(inputs map[string]*datatable.Table, slots []string) []*group {
	var groups []*group
	for _, slot := range slots {
		for i := 0; i < inputs[slot].Len(); i++ {
			groups = append(groups, &group{
				key:  slot + "#" + strconv.Itoa(i),
				rows: map[string][]int{slot: {i}},
			})
		}
	}
	return groups
}

// finish validates groups against the mode and turns them into steps.
func (g *Generator) finish(inputs map[string]*datatable.Table, slots []string, groups []*group) (*Result, error) {
	res := &Result{}
	for _, grp := range groups {
		if g.opts.Mode == Iterating && len(slots) > 1 && g.opts.Strategy != SplitAll {
			ok, warn, err := g.checkIterating(slots, grp)
			if err != nil {
				return nil, err
			}
			if !ok {
				res.Warnings = append(res.Warnings, warn...)
				continue
			}
		}

		step := &Step{Index: len(res.Steps), Key: grp.key, Rows: make(map[string][]int, len(slots))}
		var texts [][]datatable.TextAnnotation
		var datas [][]datatable.DataAnnotation
		for _, slot := range slots {
			rows := grp.rows[slot]
			step.Rows[slot] = rows
			for _, i := range rows {
				row := inputs[slot].Row(i)
				texts = append(texts, row.Texts)
				datas = append(datas, row.Datas)
			}
		}

		var err error
		if step.Texts, err = datatable.MergeTexts(g.opts.MergeMode, texts...); err != nil {
			return nil, err
		}
		if step.Datas, err = datatable.MergeDatas(g.opts.DataMergeMode, datas...); err != nil {
			return nil, err
		}
		res.Steps = append(res.Steps, step)
	}
	return res, nil
}

// checkIterating enforces exactly one row per slot. It returns false with
// warnings for groups that must be dropped.
func (g *Generator) checkIterating(slots []string, grp *group) (bool, []Warning, error) {
	var missing []string
	for _, slot := range slots {
		rows := grp.rows[slot]
		if len(rows) > 1 {
			if !g.opts.SkipAmbiguous {
				return false, nil, &AmbiguousMatchError{Key: keyLabel(grp.key), Slot: slot, Rows: rows}
			}
			return false, []Warning{{Slot: slot, Rows: rows, Key: keyLabel(grp.key), Reason: "ambiguous match skipped"}}, nil
		}
		if len(rows) == 0 {
			missing = append(missing, slot)
		}
	}
	if len(missing) == 0 {
		return true, nil, nil
	}

	var warnings []Warning
	for _, slot := range slots {
		if rows := grp.rows[slot]; len(rows) > 0 {
			warnings = append(warnings, Warning{
				Slot:   slot,
				Rows:   rows,
				Key:    keyLabel(grp.key),
				Reason: "no matching row in slot(s) " + strings.Join(missing, ", "),
			})
		}
	}
	return false, warnings, nil
}
