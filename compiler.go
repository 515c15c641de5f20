package sqlpager

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// FetchMode is the strategy a Plan uses to reach the requested page.
type FetchMode int

const (
	// FetchOffset skips rows from the first page with OFFSET.
	FetchOffset FetchMode = iota
	// FetchForward continues after the cursor boundary.
	FetchForward
	// FetchBackward walks back from the cursor boundary with reversed
	// orderings. Fetched rows come in reversed order.
	FetchBackward
)

func (m FetchMode) String() string {
	switch m {
	case FetchOffset:
		return "offset"
	case FetchForward:
		return "forward"
	case FetchBackward:
		return "backward"
	default:
		return "FetchMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Request is the input of Compiler.Compile.
type Request struct {
	// SQL is the template to paginate. It must not contain ORDER BY, LIMIT or
	// OFFSET clauses and may contain ":key" placeholders.
	SQL string
	// Orderings are applied as ORDER BY. Required for cursor pagination.
	Orderings Orderings
	Params    map[string]any
	// Pager is optional. Without it the statement is only ordered.
	Pager *Pager
	// Cursor is the cursor stored by the previous request, if any.
	Cursor *Cursor
}

// Plan is a compiled request: the statement to execute and everything the
// result reduction needs to know about how it was built.
type Plan struct {
	Query     Query
	Pager     *Pager
	Orderings Orderings
	// Cursor is the verified cursor of the request. It is kept for the near
	// first offset fetch too, where it is not used in the predicate.
	Cursor      *Cursor
	Mode        FetchMode
	ForwardFeed bool
	NearByFirst bool
	Offset      int
	Limit       int

	createdAt time.Time
	cursorTTL time.Duration
}

// Compiler turns SQL templates into paginated statements.
type Compiler struct {
	analyzer  Analyzer
	binder    *binder
	logger    *slog.Logger
	cursorTTL time.Duration
	clock     func() time.Time
}

// NewCompiler returns a Compiler using analyzer to inspect templates. A nil
// analyzer means KeywordAnalyzer.
func NewCompiler(analyzer Analyzer, opts ...Option) *Compiler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if analyzer == nil {
		analyzer = KeywordAnalyzer{}
	}

	return &Compiler{
		analyzer:  analyzer,
		binder:    newBinder(cfg.converter),
		logger:    cfg.logger,
		cursorTTL: cfg.cursorTTL,
		clock:     cfg.clock,
	}
}

// Bind normalizes params of text, see ValidateParamKey for accepted keys.
func (c *Compiler) Bind(text string, params map[string]any) (Query, error) {
	boundSQL, bindings, err := c.binder.Bind(text, params)
	if err != nil {
		return Query{}, err
	}

	return Query{SQL: boundSQL, Bindings: bindings}, nil
}

// CountQuery returns a statement counting every row of the template. The
// only column is named "total".
func (c *Compiler) CountQuery(text string, params map[string]any) (Query, error) {
	return c.Bind(fmt.Sprintf("SELECT COUNT(*) AS total FROM (%s) AS T", trimTemplate(text)), params)
}

// Compile builds the statement for req.
func (c *Compiler) Compile(req Request) (*Plan, error) {
	text := trimTemplate(req.SQL)
	if text == "" {
		return nil, fmt.Errorf("cannot compile: empty sql template")
	}

	plan, err := c.newPlan(req.Pager, req.Orderings, req.Cursor)
	if err != nil {
		return nil, fmt.Errorf("cannot compile: %w", err)
	}

	if plan.Pager == nil {
		return c.finish(plan, text+orderByClause(plan.Orderings), req.Params, nil)
	}

	queryOrderings := plan.queryOrderings()

	var cursorBindings Bindings
	if plan.Mode != FetchOffset {
		text, cursorBindings, err = c.applyCursor(text, queryOrderings, plan.Cursor, plan.Mode == FetchForward)
		if err != nil {
			return nil, fmt.Errorf("cannot compile: %w", err)
		}
	}

	text += orderByClause(queryOrderings)
	text += " LIMIT " + strconv.Itoa(plan.Limit)
	if plan.Offset > 0 {
		text += " OFFSET " + strconv.Itoa(plan.Offset)
	}

	return c.finish(plan, text, req.Params, cursorBindings)
}

// Paginate applies the plan for pager to a gorm query. Column names of
// orderings are used in the keyset condition as is. The returned Plan has no
// Query and is meant for Paging.
func (c *Compiler) Paginate(db *gorm.DB, orderings Orderings, pager *Pager, cursor *Cursor) (*gorm.DB, *Plan, error) {
	plan, err := c.newPlan(pager, orderings, cursor)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot paginate: %w", err)
	}

	queryOrderings := plan.queryOrderings()

	if plan.Mode != FetchOffset {
		boundary := plan.Cursor.Boundary()
		columns := lo.Map(queryOrderings, func(item OrderBy, i int) keysetColumn {
			return keysetColumn{Ref: item.Column, Direction: item.Direction, Value: boundary[i].Value}
		})

		if expr := newKeysetDNF(columns, plan.Mode == FetchForward).toGORMExpression(); expr != nil {
			db = db.Clauses(expr)
		}
	}

	if len(queryOrderings) > 0 {
		db = db.Order(queryOrderings.ToSQL())
	}

	if plan.Pager != nil {
		db = db.Limit(plan.Limit)
		if plan.Offset > 0 {
			db = db.Offset(plan.Offset)
		}
	}

	return db, plan, nil
}

// newPlan validates the request shape and picks the fetch strategy.
func (c *Compiler) newPlan(pager *Pager, orderings Orderings, cursor *Cursor) (*Plan, error) {
	if len(orderings) > 0 {
		if err := orderings.validate(); err != nil {
			return nil, err
		}
	}

	now := c.clock()
	plan := &Plan{
		Orderings: orderings,
		Mode:      FetchOffset,
		createdAt: now,
		cursorTTL: c.cursorTTL,
	}

	if pager == nil {
		return plan, nil
	}

	p := *pager
	if err := p.validate(); err != nil {
		return nil, err
	}
	plan.Pager = &p

	plan.Cursor = c.verify(p, orderings, cursor, now)
	plan.ForwardFeed, plan.NearByFirst = ResolveDirection(p, plan.Cursor)
	plan.Offset = ComputeOffset(p, plan.Cursor, plan.ForwardFeed, plan.NearByFirst)
	plan.Limit = ComputeLimit(p, plan.Cursor, plan.ForwardFeed, plan.NearByFirst)

	switch {
	case plan.Cursor == nil || plan.NearByFirst:
		plan.Mode = FetchOffset
	case plan.ForwardFeed:
		plan.Mode = FetchForward
	default:
		plan.Mode = FetchBackward
	}

	c.logger.Debug("pagination planned",
		slog.String("mode", plan.Mode.String()),
		slog.Int("page", p.Page()),
		slog.Int("size", p.Size()),
		slog.Int("offset", plan.Offset),
		slog.Int("limit", plan.Limit),
	)

	return plan, nil
}

// queryOrderings returns the orderings the statement is sorted by.
func (p *Plan) queryOrderings() Orderings {
	if p.Mode == FetchBackward {
		return p.Orderings.Reverse()
	}

	return p.Orderings
}

func (c *Compiler) finish(plan *Plan, text string, params map[string]any, extra Bindings) (*Plan, error) {
	query, err := c.Bind(text, params)
	if err != nil {
		return nil, err
	}

	query.Bindings = orderBindings(query.SQL, append(query.Bindings, extra...))
	plan.Query = query

	return plan, nil
}

// verify drops a cursor which cannot serve the request.
func (c *Compiler) verify(pager Pager, orderings Orderings, cursor *Cursor, now time.Time) *Cursor {
	if cursor == nil {
		return nil
	}

	reason := ""
	switch {
	case !pager.UseCursor():
		reason = "cursor pagination disabled"
	case len(orderings) == 0:
		reason = "no orderings"
	default:
		if err := cursor.check(pager, orderings, now); err != nil {
			reason = err.Error()
		}
	}

	if reason != "" {
		c.logger.Debug("cursor dropped", slog.String("reason", reason), slog.Int("cursor_page", cursor.Page()))
		return nil
	}

	return cursor
}

// applyCursor adds the keyset predicate to text. orderings are the ones the
// statement is ordered by, forward tells if the boundary row is included.
func (c *Compiler) applyCursor(text string, orderings Orderings, cursor *Cursor, forward bool) (string, Bindings, error) {
	analysis, err := c.analyzer.Analyze(text)
	if err != nil {
		return "", nil, fmt.Errorf("cannot analyze sql template: %w", err)
	}

	isUnion := analysis.IsUnion()
	hasGroupBy := !isUnion && analysis.HasGroupBy()
	if isUnion {
		text = fmt.Sprintf("SELECT * FROM (%s) AS T", text)
	}

	boundary := cursor.Boundary()
	columns := make([]keysetColumn, 0, len(orderings))
	for i, ordering := range orderings {
		ref := ordering.Column
		// HAVING and the wrapping SELECT see aliases, WHERE does not.
		if !isUnion && !hasGroupBy {
			ref, err = analysis.ExtractAliasSelectColumn(ordering.Column)
			if err != nil {
				return "", nil, fmt.Errorf("cannot resolve column alias '%s': %w", ordering.Column, err)
			}
		}

		columns = append(columns, keysetColumn{
			Ref:       ref,
			Direction: ordering.Direction,
			Value:     boundary[i].Value,
		})
	}

	predicate, bindings, compound, err := newKeysetDNF(columns, forward).toSQLClause(c.binder)
	if err != nil {
		return "", nil, err
	}
	if predicate == "" {
		return text, nil, nil
	}

	combined := lo.Ternary(compound, "("+predicate+")", predicate)
	switch {
	case isUnion:
		text += " WHERE " + predicate
	case hasGroupBy && analysis.HasHaving():
		text = groupCondition(text, analysis, "HAVING") + " AND " + combined
	case hasGroupBy:
		text += " HAVING " + predicate
	case analysis.HasHaving():
		text = groupCondition(text, analysis, "HAVING") + " AND " + combined
	case analysis.HasWhere():
		text = groupCondition(text, analysis, "WHERE") + " AND " + combined
	default:
		text += " WHERE " + predicate
	}

	return text, bindings, nil
}

// groupCondition parenthesizes the condition following keyword up to the end
// of text, so an OR inside it cannot absorb the appended predicate.
func groupCondition(text string, analysis Analysis, keyword string) string {
	end, ok := analysis.KeywordEnd(keyword)
	if !ok || end > len(text) {
		return text
	}

	return text[:end] + " (" + strings.TrimSpace(text[end:]) + ")"
}

// ResolveDirection tells where the requested page lies relative to the
// cursor. forwardFeed is true when the page is at or after the cursor page.
// nearByFirst is true when the page is closer to the first page than to the
// cursor, plain OFFSET is then cheaper than walking from the cursor.
func ResolveDirection(pager Pager, cursor *Cursor) (forwardFeed bool, nearByFirst bool) {
	if cursor == nil {
		return true, false
	}

	page := pager.Page()
	cursorPage := cursor.Page()

	return page >= cursorPage, page < abs(cursorPage-page)
}

// ComputeOffset returns the OFFSET of the statement.
func ComputeOffset(pager Pager, cursor *Cursor, forwardFeed bool, nearByFirst bool) int {
	if cursor == nil || nearByFirst {
		return pager.Offset()
	}

	offset := pager.Size() * abs(pager.Page()-cursor.Page())
	if !forwardFeed {
		offset -= pager.Size()
	}

	return max(offset, 0)
}

// ComputeLimit returns the LIMIT of the statement: the page itself, the next
// side window used to render sibling page links and one sentinel row telling
// if anything follows. A backward keyset fetch reads the page only, pages
// after it are known from the cursor.
func ComputeLimit(pager Pager, cursor *Cursor, forwardFeed bool, nearByFirst bool) int {
	limit := pager.Size()

	backward := cursor != nil && !forwardFeed && !nearByFirst
	if backward {
		return limit
	}

	if !pager.NeedTotal() {
		sides := NextSideCount(pager)
		if cursor != nil && cursor.Lookahead(pager.Page()) >= pager.EachSide() {
			sides = 1
		}
		limit += pager.Size() * (sides - 1)
	}

	return limit + 1
}

// NextSideCount returns how many pages starting from the current one have to
// be fetched to render EachSide links after it. Near the first page the
// missing links on the left are moved to the right.
func NextSideCount(pager Pager) int {
	eachSide := pager.EachSide()
	if eachSide == 0 {
		return 1
	}

	return max(eachSide, eachSide*2-pager.Page()+1)
}

func orderByClause(orderings Orderings) string {
	if len(orderings) == 0 {
		return ""
	}

	return " ORDER BY " + orderings.ToSQL()
}

// orderBindings sorts bindings by the position of their placeholder in text.
func orderBindings(text string, bindings Bindings) Bindings {
	positions := make(map[string]int, len(bindings))
	for i, ph := range scanPlaceholders(text) {
		if _, ok := positions[ph.name]; !ok {
			positions[ph.name] = i
		}
	}

	slices.SortStableFunc(bindings, func(a, b Binding) int {
		pa, okA := positions[a.Name]
		pb, okB := positions[b.Name]
		switch {
		case okA && okB:
			return pa - pb
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})

	return bindings
}

func trimTemplate(text string) string {
	return strings.TrimRight(strings.TrimSpace(text), "; \t\n")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
