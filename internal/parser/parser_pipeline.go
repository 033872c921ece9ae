package parser

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/lexer"
)

// parseFromExpr, parseExistsExpr, and parseForallExpr share one step
// grammar. Restrictions specific to one kind (no `compute`/
// `into` in `exists`/`forall`; `forall` must end in `require`) are left to
// the inferencer, which already walks every step to assign
// row types and is the natural place to reject a misplaced step.

func (p *Parser) parseFromExpr() ast.Expr {
	start := p.pos()
	p.next() // consume 'from'
	head := p.parseScanHead()
	steps := p.parseSteps()
	return &ast.PipelineExpr{Kind: ast.PipelineFrom, Head: head, Steps: steps, Pos: start}
}

func (p *Parser) parseExistsExpr() ast.Expr {
	start := p.pos()
	p.next() // consume 'exists'
	head := p.parseScanHead()
	steps := p.parseSteps()
	return &ast.PipelineExpr{Kind: ast.PipelineExists, Head: head, Steps: steps, Pos: start}
}

func (p *Parser) parseForallExpr() ast.Expr {
	start := p.pos()
	p.next() // consume 'forall'
	head := p.parseScanHead()
	steps := p.parseSteps()
	return &ast.PipelineExpr{Kind: ast.PipelineForall, Head: head, Steps: steps, Pos: start}
}

// parseScanHead parses one or more comma-separated scans: `p in e`, `p = e`,
// or a bare pattern awaiting extent solving.
func (p *Parser) parseScanHead() []ast.Scan {
	scans := []ast.Scan{p.parseOneScan()}
	for p.curIs(lexer.COMMA) {
		p.next()
		scans = append(scans, p.parseOneScan())
	}
	return scans
}

func (p *Parser) parseOneScan() ast.Scan {
	start := p.pos()
	pat := p.parsePattern()
	switch {
	case p.curIs(lexer.IN):
		p.next()
		src := p.parseExpr(0)
		return ast.Scan{Pattern: pat, Source: src, Pos: start}
	case p.curIs(lexer.EQ):
		p.next()
		src := p.parseExpr(0)
		return ast.Scan{Pattern: pat, Source: src, Pos: start}
	default:
		return ast.Scan{Pattern: pat, Pos: start}
	}
}

// parseSteps parses zero or more pipeline steps until a token that cannot
// start one is reached.
func (p *Parser) parseSteps() []ast.Step {
	var steps []ast.Step
	for {
		start := p.pos()
		switch {
		case p.curIs(lexer.WHERE):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepWhere, Cond: p.parseExpr(0), Pos: start})

		case p.curIs(lexer.JOIN):
			p.next()
			scans := p.parseScanHead()
			var on ast.Expr
			if p.curIs(lexer.ON) {
				p.next()
				on = p.parseExpr(0)
			}
			steps = append(steps, ast.Step{Kind: ast.StepJoin, JoinScans: scans, JoinOn: on, Pos: start})

		case p.curIs(lexer.GROUP):
			p.next()
			key := p.parseExpr(0)
			var specs []ast.AggSpec
			if p.curIs(lexer.COMPUTE) {
				p.next()
				specs = p.parseAggList()
			}
			steps = append(steps, ast.Step{Kind: ast.StepGroup, GroupKey: key, ComputeSpecs: specs, Pos: start})

		case p.curIs(lexer.ORDER):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepOrder, OrderKeys: p.parseOrderKeys(), Pos: start})

		case p.curIs(lexer.TAKE):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepTake, CountExpr: p.parseExpr(0), Pos: start})

		case p.curIs(lexer.SKIP):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepSkip, CountExpr: p.parseExpr(0), Pos: start})

		case p.curIs(lexer.DISTINCT):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepDistinct, Pos: start})

		case p.curIs(lexer.UNORDER):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepUnorder, Pos: start})

		case p.curIs(lexer.YIELD):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepYield, YieldExpr: p.parseExpr(0), Pos: start})

		case p.curIs(lexer.THROUGH):
			p.next()
			pat := p.parsePattern()
			p.expect(lexer.IN)
			fn := p.parseExpr(0)
			steps = append(steps, ast.Step{Kind: ast.StepThrough, ThroughPattern: pat, ThroughFn: fn, Pos: start})

		case p.curIs(lexer.COMPUTE):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepCompute, Aggs: p.parseAggList(), Pos: start})

		case p.curIs(lexer.INTO):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepInto, IntoFn: p.parseExpr(0), Pos: start})

		case p.curIs(lexer.REQUIRE):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepRequire, Cond: p.parseExpr(0), Pos: start})

		case p.curIs(lexer.UNION):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepUnion, SetOperands: p.parseSetOperandList(), Pos: start})

		case p.curIs(lexer.INTERSECT):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepIntersect, SetOperands: p.parseSetOperandList(), Pos: start})

		case p.curIs(lexer.EXCEPT):
			p.next()
			steps = append(steps, ast.Step{Kind: ast.StepExcept, SetOperands: p.parseSetOperandList(), Pos: start})

		default:
			return steps
		}
	}
}

// parseOrderKeys parses "expr [DESC], expr [DESC],...".
func (p *Parser) parseOrderKeys() []ast.OrderKey {
	keys := []ast.OrderKey{p.parseOneOrderKey()}
	for p.curIs(lexer.COMMA) {
		p.next()
		keys = append(keys, p.parseOneOrderKey())
	}
	return keys
}

func (p *Parser) parseOneOrderKey() ast.OrderKey {
	e := p.parseExpr(0)
	desc := false
	if p.curIs(lexer.DESC) {
		p.next()
		desc = true
	}
	return ast.OrderKey{Expr: e, Desc: desc}
}

// parseSetOperandList parses "[distinct] expr, [distinct] expr,..." for a
// `union`/`intersect`/`except` step.
func (p *Parser) parseSetOperandList() []ast.SetOperand {
	operands := []ast.SetOperand{p.parseOneSetOperand()}
	for p.curIs(lexer.COMMA) {
		p.next()
		operands = append(operands, p.parseOneSetOperand())
	}
	return operands
}

func (p *Parser) parseOneSetOperand() ast.SetOperand {
	distinct := false
	if p.curIs(lexer.DISTINCT) {
		p.next()
		distinct = true
	}
	return ast.SetOperand{Source: p.parseExpr(0), Distinct: distinct}
}

// parseAggList parses one `compute` argument list: either a single bare
// aggregator ("sum over i") or one-or-more named aggregates ("sb = sum of
// e.b, sc = count of e.c").
func (p *Parser) parseAggList() []ast.AggSpec {
	specs := []ast.AggSpec{p.parseOneAgg()}
	for p.curIs(lexer.COMMA) {
		p.next()
		specs = append(specs, p.parseOneAgg())
	}
	return specs
}

func (p *Parser) parseOneAgg() ast.AggSpec {
	if p.curIs(lexer.IDENT) && p.peekIs(lexer.EQ) {
		name := p.cur.Literal
		p.next() // name
		p.next() // '='
		agg := p.cur.Literal
		p.expect(lexer.IDENT)
		p.expect(lexer.OF)
		expr := p.parseExpr(0)
		return ast.AggSpec{Name: name, Agg: agg, Expr: expr}
	}
	agg := p.cur.Literal
	p.expect(lexer.IDENT)
	p.expect(lexer.OVER)
	expr := p.parseExpr(0)
	return ast.AggSpec{Name: "", Agg: agg, Expr: expr}
}
