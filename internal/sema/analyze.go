package sema

import (
	"strings"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// Options configure a single analysis run.
type Options struct {
	// Reporter receives semantic diagnostics. Nil means discard.
	Reporter diag.Reporter
}

// Analyze walks a parsed tree and produces the scope tree, the symbol
// table, and every resolved or unresolved reference for the file.
func Analyze(file *source.File, tree *ast.Tree, opts Options) *Table {
	t := NewTable(file.ID)
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	a := &analyzer{
		file:  file,
		tree:  tree,
		table: t,
		rep:   opts.Reporter,
		pkg:   "main",
	}
	root := tree.RootNode()
	rootSpan := source.Span{File: file.ID}
	if root != nil {
		rootSpan = root.Span
	}
	t.FileRoot = t.Scopes.New(ScopeFile, NoScopeID, rootSpan, a.pkg)
	a.scope = t.FileRoot

	if root != nil {
		for _, child := range root.Children {
			a.statement(child)
		}
	}
	a.reportUnused(t.FileRoot)
	return t
}

type analyzer struct {
	file  *source.File
	tree  *ast.Tree
	table *Table
	rep   diag.Reporter

	scope    ScopeID
	pkg      string
	strict   bool
	subDepth int
}

func (a *analyzer) node(id ast.NodeID) *ast.Node {
	return a.tree.Node(id)
}

func (a *analyzer) text(n *ast.Node) string {
	if n == nil || int(n.Span.End) > len(a.file.Content) {
		return ""
	}
	return string(a.file.Content[n.Span.Start:n.Span.End])
}

func (a *analyzer) field(id ast.NodeID, f ast.FieldName) ast.NodeID {
	return a.tree.ChildByField(id, f)
}

// pushScope enters a child scope; the returned func pops it and runs the
// unused-lexical check for everything declared inside.
func (a *analyzer) pushScope(kind ScopeKind, span source.Span) func() {
	parent := a.scope
	a.scope = a.table.Scopes.New(kind, parent, span, a.pkg)
	entered := a.scope
	return func() {
		a.reportUnused(entered)
		a.scope = parent
	}
}

// statement dispatches one statement node.
func (a *analyzer) statement(id ast.NodeID) {
	n := a.node(id)
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindEmptyStatement:
		return

	case ast.KindPackageStatement:
		a.packageStatement(id, n)

	case ast.KindUseStatement:
		a.useStatement(id, n)

	case ast.KindRequireStatement:
		if mod := a.field(id, ast.FieldModule); mod.IsValid() {
			mn := a.node(mod)
			if mn.Kind == ast.KindPackageName {
				a.addRef(Reference{Name: a.text(mn), Kind: RefPackage, Span: mn.Span, Scope: a.scope})
			} else {
				a.expr(mod)
			}
		}

	case ast.KindSubroutineDeclaration:
		a.subDeclaration(id, n)

	case ast.KindVariableDeclaration:
		a.variableDeclaration(id, n)

	case ast.KindIfStatement, ast.KindUnlessStatement:
		pop := a.pushScope(ScopeBlock, n.Span)
		defer pop()
		a.expr(a.field(id, ast.FieldCondition))
		a.blockScope(a.field(id, ast.FieldConsequence), ScopeBlock)
		for _, alt := range a.tree.ChildrenByField(id, ast.FieldAlternative) {
			an := a.node(alt)
			switch an.Kind {
			case ast.KindElsifClause:
				a.expr(a.field(alt, ast.FieldCondition))
				a.blockScope(a.field(alt, ast.FieldBody), ScopeBlock)
			case ast.KindElseClause:
				a.blockScope(a.field(alt, ast.FieldBody), ScopeBlock)
			}
		}

	case ast.KindWhileStatement, ast.KindUntilStatement:
		pop := a.pushScope(ScopeBlock, n.Span)
		defer pop()
		a.expr(a.field(id, ast.FieldCondition))
		a.blockScope(a.field(id, ast.FieldBody), ScopeBlock)

	case ast.KindForStatement, ast.KindForeachStatement:
		a.loopStatement(id, n)

	case ast.KindBlock:
		a.blockScope(id, ScopeBlock)

	case ast.KindLabeledStatement:
		if lbl := a.field(id, ast.FieldLabel); lbl.IsValid() {
			ln := a.node(lbl)
			a.table.Declare(a.scope, Symbol{
				Name: a.text(ln),
				Kind: SymbolLabel,
				Decl: ln.Span,
			})
		}
		a.statement(a.field(id, ast.FieldBody))

	case ast.KindStatementModifier:
		a.statement(a.field(id, ast.FieldBody))
		a.expr(a.field(id, ast.FieldCondition))

	case ast.KindReturnStatement:
		a.expr(a.field(id, ast.FieldValue))

	case ast.KindLoopControlStatement:
		if lbl := a.field(id, ast.FieldLabel); lbl.IsValid() {
			ln := a.node(lbl)
			name := a.text(ln)
			sym, _ := a.table.Lookup(a.scope, name, ln.Span.Start)
			a.addRef(Reference{Name: name, Kind: RefLabel, Span: ln.Span, Scope: a.scope, Symbol: sym})
			a.markUsed(sym)
		}

	case ast.KindExpressionStatement:
		for _, c := range n.Children {
			a.expr(c)
		}

	case ast.KindError:
		// Best effort inside broken statements.
		for _, c := range n.Children {
			a.expr(c)
		}
	}
}

func (a *analyzer) packageStatement(id ast.NodeID, n *ast.Node) {
	name := ""
	if nm := a.field(id, ast.FieldName_); nm.IsValid() {
		nn := a.node(nm)
		name = a.text(nn)
		a.table.Declare(a.table.FileRoot, Symbol{
			Name:    name,
			Kind:    SymbolPackage,
			Decl:    nn.Span,
			Package: name,
			Flags:   SymbolFlagUsed,
		})
		a.table.Packages = append(a.table.Packages, name)
	}
	if body := a.field(id, ast.FieldBody); body.IsValid() {
		// package Foo { ... } scopes the name to the block.
		savedPkg := a.pkg
		a.pkg = name
		parent := a.scope
		a.scope = a.table.Scopes.New(ScopePackage, parent, a.node(body).Span, name)
		entered := a.scope
		a.walkBlockStatements(body)
		a.reportUnused(entered)
		a.scope = parent
		a.pkg = savedPkg
		return
	}
	// `package Foo;` switches the package for the rest of the enclosing
	// scope.
	if name != "" {
		a.pkg = name
	}
}

func (a *analyzer) useStatement(id ast.NodeID, n *ast.Node) {
	kwText := a.text(a.node(n.Children[0]))
	if mod := a.field(id, ast.FieldModule); mod.IsValid() {
		mn := a.node(mod)
		name := a.text(mn)
		switch name {
		case "strict":
			a.strict = kwText == "use"
		default:
			a.addRef(Reference{Name: name, Kind: RefPackage, Span: mn.Span, Scope: a.scope})
		}
	}
	if args := a.field(id, ast.FieldArguments); args.IsValid() {
		a.expr(args)
	}
}

func (a *analyzer) subDeclaration(id ast.NodeID, n *ast.Node) {
	nm := a.field(id, ast.FieldName_)
	nn := a.node(nm)
	name := a.text(nn)
	if name != "" {
		a.table.Declare(a.packageLevelScope(), Symbol{
			Name:    name,
			Kind:    SymbolSub,
			Decl:    nn.Span,
			Package: a.pkg,
		})
	}
	body := a.field(id, ast.FieldBody)
	if !body.IsValid() {
		return
	}
	a.subDepth++
	a.blockScope(body, ScopeSub)
	a.subDepth--
}

// packageLevelScope finds the nearest enclosing file or package scope,
// where named subs live.
func (a *analyzer) packageLevelScope() ScopeID {
	for id := a.scope; id.IsValid(); {
		sc := a.table.Scopes.Get(id)
		if sc == nil {
			break
		}
		if sc.Kind == ScopeFile || sc.Kind == ScopePackage {
			return id
		}
		id = sc.Parent
	}
	return a.table.FileRoot
}

func (a *analyzer) variableDeclaration(id ast.NodeID, n *ast.Node) {
	kwText := a.text(a.node(n.Children[0]))

	// The initializer resolves against the surrounding scope, so
	// `my $x = $x;` binds the right-hand side to the outer $x.
	if value := a.field(id, ast.FieldValue); value.IsValid() {
		a.expr(value)
	}

	vars := a.tree.ChildrenByField(id, ast.FieldVariables)
	if v := a.field(id, ast.FieldVariable); v.IsValid() {
		vars = append([]ast.NodeID{v}, vars...)
	}
	for _, v := range vars {
		vn := a.node(v)
		name := a.text(vn)
		if name == "" {
			continue
		}
		if kwText == "local" {
			// local dynamically scopes an existing variable; it is a
			// use, not a fresh declaration.
			a.variableRef(vn, name)
			continue
		}
		var flags SymbolFlags
		pkg := ""
		switch kwText {
		case "our":
			flags |= SymbolFlagOur
			pkg = a.pkg
		case "state":
			flags |= SymbolFlagState
		}
		if prev := a.table.LookupIn(a.scope, name, vn.Span.Start); prev.IsValid() {
			if ps := a.table.Symbols.Get(prev); ps.Flags&SymbolFlagBuiltin == 0 {
				d := diag.Diagnostic{
					Severity: diag.SevWarning,
					Code:     diag.SemMasksEarlier,
					Message:  "\"" + kwText + " " + name + "\" masks earlier declaration in same scope",
					Primary:  vn.Span,
				}
				a.rep.Report(d.Code, d.Severity, d.Primary, d.Message,
					[]diag.Note{{Span: ps.Decl, Msg: "earlier declaration is here"}})
			}
		}
		a.table.Declare(a.scope, Symbol{
			Name:    name,
			Kind:    kindForSigil(name),
			Decl:    vn.Span,
			Package: pkg,
			Flags:   flags,
		})
	}
}

func (a *analyzer) loopStatement(id ast.NodeID, n *ast.Node) {
	pop := a.pushScope(ScopeBlock, n.Span)
	defer pop()

	// Header expressions in source order. The foreach list is walked
	// before the loop variable is declared; C-style init may itself
	// declare (`for (my $i = 0; ...)`).
	a.expr(a.field(id, ast.FieldInit))
	a.expr(a.field(id, ast.FieldCondition))
	a.expr(a.field(id, ast.FieldList))
	a.expr(a.field(id, ast.FieldUpdate))

	if v := a.field(id, ast.FieldVariable); v.IsValid() {
		vn := a.node(v)
		if vn.Kind == ast.KindVariableDeclaration {
			a.variableDeclaration(v, vn)
		} else if vn.Kind == ast.KindVariable {
			a.variableRef(vn, a.text(vn))
		}
	}
	a.blockScope(a.field(id, ast.FieldBody), ScopeBlock)
}

// blockScope walks a block node inside a fresh scope of the given kind.
func (a *analyzer) blockScope(id ast.NodeID, kind ScopeKind) {
	n := a.node(id)
	if n == nil {
		return
	}
	if n.Kind != ast.KindBlock {
		// Error recovery can leave a non-block here.
		a.statement(id)
		return
	}
	parent := a.scope
	a.scope = a.table.Scopes.New(kind, parent, n.Span, a.pkg)
	entered := a.scope
	savedPkg := a.pkg
	a.walkBlockStatements(id)
	a.pkg = savedPkg
	a.reportUnused(entered)
	a.scope = parent
}

func (a *analyzer) walkBlockStatements(id ast.NodeID) {
	n := a.node(id)
	for _, c := range n.Children {
		cn := a.node(c)
		if cn == nil || cn.Kind == ast.KindPunctuation {
			continue
		}
		a.statement(c)
	}
}

// expr walks an expression subtree, recording references.
func (a *analyzer) expr(id ast.NodeID) {
	if !id.IsValid() {
		return
	}
	n := a.node(id)
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindVariable:
		a.variableRef(n, a.text(n))

	case ast.KindElementAccess, ast.KindSliceExpression:
		a.subscript(id, n)

	case ast.KindCallExpression:
		a.call(id, n)

	case ast.KindMethodCallExpression:
		a.methodCall(id, n)

	case ast.KindAnonymousSubroutine:
		a.subDepth++
		a.blockScope(a.field(id, ast.FieldBody), ScopeSub)
		a.subDepth--

	case ast.KindEvalBlock:
		if body := a.field(id, ast.FieldBody); body.IsValid() {
			a.blockScope(body, ScopeEval)
		} else {
			a.expr(a.field(id, ast.FieldValue))
		}

	case ast.KindDoBlock:
		if body := a.field(id, ast.FieldBody); body.IsValid() {
			a.blockScope(body, ScopeBlock)
		} else {
			a.expr(a.field(id, ast.FieldValue))
		}

	case ast.KindBlock:
		// Blocks reached through expressions: map/grep/sort bodies.
		a.blockScope(id, ScopeBlock)

	case ast.KindVariableDeclaration:
		// Declaration in expression position: `open(my $fh, ...)`,
		// `while (my $line = <$fh>)`.
		a.variableDeclaration(id, n)

	case ast.KindStringLiteral, ast.KindQuoteLike, ast.KindWordList,
		ast.KindRegexMatch, ast.KindSubstitution, ast.KindTransliteration,
		ast.KindHeredoc, ast.KindReadline, ast.KindNumberLiteral,
		ast.KindVersionLiteral, ast.KindBareword, ast.KindPackageName,
		ast.KindOperator, ast.KindPunctuation, ast.KindKeyword,
		ast.KindLabel:
		return

	default:
		for _, c := range n.Children {
			a.expr(c)
		}
	}
}

// subscript handles array/hash element and slice access, canonicalizing
// the sigil: `$x[0]` uses @x, `$h{k}` uses %h, `@h{...}` uses %h.
func (a *analyzer) subscript(id ast.NodeID, n *ast.Node) {
	obj := a.field(id, ast.FieldObject)
	on := a.node(obj)

	arrowed := false
	if len(n.Children) > 1 {
		c1 := a.node(n.Children[1])
		arrowed = c1 != nil && c1.Kind == ast.KindOperator && c1.Token == token.Arrow
	}

	handled := false
	if !arrowed && on != nil && on.Kind == ast.KindVariable {
		name := a.text(on)
		if canon := canonicalSubscriptName(name, a.hasKeySubscript(id)); canon != "" {
			a.variableRef(on, canon)
			handled = true
		}
	}
	if !handled {
		a.expr(obj)
	}
	a.expr(a.field(id, ast.FieldIndex))
	if key := a.field(id, ast.FieldKey); key.IsValid() {
		a.expr(key)
	}
}

func (a *analyzer) hasKeySubscript(id ast.NodeID) bool {
	if a.field(id, ast.FieldKey).IsValid() {
		return true
	}
	if a.field(id, ast.FieldIndex).IsValid() {
		return false
	}
	// Empty subscript: look at the opening delimiter.
	n := a.node(id)
	for _, c := range n.Children {
		cn := a.node(c)
		if cn != nil && cn.Kind == ast.KindPunctuation && cn.Token == token.LBrace {
			return true
		}
	}
	return false
}

// canonicalSubscriptName maps the access sigil to the declared container
// sigil, or "" when the name cannot be canonicalized.
func canonicalSubscriptName(name string, keyed bool) string {
	if len(name) < 2 {
		return ""
	}
	base := name[1:]
	if name[0] == '$' && name[1] == '#' {
		return "" // handled by variableRef directly
	}
	switch name[0] {
	case '$', '@':
		if keyed {
			return "%" + base
		}
		return "@" + base
	case '%':
		if keyed {
			return "%" + base
		}
		return "@" + base
	}
	return ""
}

func (a *analyzer) call(id ast.NodeID, n *ast.Node) {
	fn := a.field(id, ast.FieldFunction)
	fnode := a.node(fn)
	if fnode != nil && fnode.Kind == ast.KindBareword {
		name := a.text(fnode)
		if !isBuiltinFunc(name) {
			sym := a.resolveSub(name, fnode.Span.Start)
			a.addRef(Reference{Name: name, Kind: RefSub, Span: fnode.Span, Scope: a.scope, Symbol: sym})
			a.markUsed(sym)
		}
	} else {
		a.expr(fn)
	}
	a.expr(a.field(id, ast.FieldArguments))
}

func (a *analyzer) methodCall(id ast.NodeID, n *ast.Node) {
	obj := a.field(id, ast.FieldObject)
	on := a.node(obj)
	objPkg := ""
	if on != nil && on.Kind == ast.KindPackageName {
		objPkg = a.text(on)
		a.addRef(Reference{Name: objPkg, Kind: RefPackage, Span: on.Span, Scope: a.scope})
	} else {
		a.expr(obj)
	}

	m := a.field(id, ast.FieldMethod)
	mn := a.node(m)
	if mn != nil && mn.Kind == ast.KindBareword {
		name := a.text(mn)
		if objPkg != "" {
			name = objPkg + "::" + name
		}
		sym := a.resolveSub(name, mn.Span.Start)
		a.addRef(Reference{Name: name, Kind: RefSub, Span: mn.Span, Scope: a.scope, Symbol: sym})
		a.markUsed(sym)
	} else {
		a.expr(m)
	}
	a.expr(a.field(id, ast.FieldArguments))
}

// resolveSub finds an in-file sub by bare or qualified name. Unresolved
// calls stay in the table for the workspace index to retry.
func (a *analyzer) resolveSub(name string, before uint32) SymbolID {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return a.resolveQualified(name[:i], name[i+2:], SymbolSub)
	}
	// Subs are visible regardless of position within their package.
	sym, _ := a.table.Lookup(a.scope, name, ^uint32(0))
	if s := a.table.Symbols.Get(sym); s != nil && s.Kind == SymbolSub {
		return sym
	}
	return NoSymbolID
}

// resolveQualified scans for a package-visible symbol Pkg::name.
func (a *analyzer) resolveQualified(pkg, name string, kind SymbolKind) SymbolID {
	for id := SymbolID(1); int(id) <= a.table.Symbols.Len(); id++ {
		sym := a.table.Symbols.Get(id)
		if sym.Kind != kind || sym.Package != pkg {
			continue
		}
		bare := sym.Name
		if kind != SymbolSub && len(bare) > 1 {
			bare = bare[1:]
		}
		if bare == name {
			return id
		}
	}
	return NoSymbolID
}

// variableRef records one variable use and resolves it.
func (a *analyzer) variableRef(n *ast.Node, name string) {
	if len(name) <= 1 || name == "$#" {
		return // bare sigil heading a deref block
	}
	if name == "$[" || name == "$*" {
		diag.ReportWarning(a.rep, diag.SemDeprecatedConstruct, n.Span,
			"\""+name+"\" is deprecated and no longer supported")
		return
	}
	// $#array counts as a use of @array.
	if strings.HasPrefix(name, "$#") {
		name = "@" + name[2:]
	}

	if kind := builtinKindFor(name); kind != SymbolInvalid {
		sym := a.table.Builtin(name, kind)
		a.addRef(Reference{Name: name, Kind: RefVariable, Span: n.Span, Scope: a.scope, Symbol: sym})
		return
	}
	if n.Token == token.GlobVar {
		bare := name[1:]
		if builtinHandles[bare] {
			sym := a.table.Builtin(name, SymbolGlob)
			a.addRef(Reference{Name: name, Kind: RefVariable, Span: n.Span, Scope: a.scope, Symbol: sym})
			return
		}
		a.addRef(Reference{Name: name, Kind: RefVariable, Span: n.Span, Scope: a.scope})
		return
	}
	if n.Token == token.FuncVar {
		bare := name[1:]
		sym := a.resolveSub(bare, n.Span.Start)
		a.addRef(Reference{Name: bare, Kind: RefSub, Span: n.Span, Scope: a.scope, Symbol: sym})
		a.markUsed(sym)
		return
	}

	if i := strings.LastIndex(name, "::"); i >= 0 {
		pkg := name[1:i]
		sym := a.resolveQualified(pkg, name[i+2:], kindForSigil(name))
		a.addRef(Reference{Name: name, Kind: RefVariable, Span: n.Span, Scope: a.scope, Symbol: sym})
		a.markUsed(sym)
		return
	}

	sym, captured := a.table.Lookup(a.scope, name, n.Span.Start)
	a.addRef(Reference{Name: name, Kind: RefVariable, Span: n.Span, Scope: a.scope, Symbol: sym, Captured: captured})
	a.markUsed(sym)

	if !sym.IsValid() && a.strict {
		diag.ReportError(a.rep, diag.SemUndeclaredVariable, n.Span,
			"global symbol \""+name+"\" requires explicit package name")
	}
}

func (a *analyzer) addRef(r Reference) {
	a.table.Refs = append(a.table.Refs, r)
}

func (a *analyzer) markUsed(id SymbolID) {
	if sym := a.table.Symbols.Get(id); sym != nil {
		sym.Flags |= SymbolFlagUsed
	}
}

// reportUnused warns about lexicals declared in scope that were never
// referenced. Names whose bare part starts with '_' opt out.
func (a *analyzer) reportUnused(scope ScopeID) {
	sc := a.table.Scopes.Get(scope)
	if sc == nil {
		return
	}
	for _, id := range sc.Symbols {
		sym := a.table.Symbols.Get(id)
		if sym == nil || !sym.IsLexical() || sym.Flags&SymbolFlagUsed != 0 {
			continue
		}
		switch sym.Kind {
		case SymbolScalar, SymbolArray, SymbolHash:
		default:
			continue
		}
		if len(sym.Name) > 1 && sym.Name[1] == '_' {
			continue
		}
		diag.ReportWarning(a.rep, diag.SemUnusedLexical, sym.Decl,
			"\""+sym.Name+"\" is declared but never used")
	}
}

// kindForSigil classifies a sigiled variable name.
func kindForSigil(name string) SymbolKind {
	if name == "" {
		return SymbolInvalid
	}
	switch name[0] {
	case '$':
		return SymbolScalar
	case '@':
		return SymbolArray
	case '%':
		return SymbolHash
	case '&':
		return SymbolSub
	case '*':
		return SymbolGlob
	}
	return SymbolInvalid
}

// isBuiltinFunc filters the common Perl built-in functions so bareword
// calls to them do not produce unresolved references.
func isBuiltinFunc(name string) bool {
	_, ok := builtinFuncs[name]
	return ok
}

var builtinFuncs = map[string]struct{}{
	"print": {}, "printf": {}, "say": {}, "push": {}, "pop": {},
	"shift": {}, "unshift": {}, "splice": {}, "keys": {}, "values": {},
	"each": {}, "exists": {}, "delete": {}, "defined": {}, "ref": {},
	"scalar": {}, "wantarray": {}, "die": {}, "warn": {}, "open": {},
	"close": {}, "read": {}, "binmode": {}, "eof": {}, "chomp": {},
	"chop": {}, "chdir": {}, "split": {}, "join": {}, "reverse": {},
	"sort": {}, "map": {}, "grep": {}, "lc": {}, "uc": {}, "lcfirst": {},
	"ucfirst": {}, "length": {}, "substr": {}, "index": {}, "rindex": {},
	"sprintf": {}, "abs": {}, "int": {}, "sqrt": {}, "hex": {}, "oct": {},
	"ord": {}, "chr": {}, "sleep": {}, "time": {}, "localtime": {},
	"gmtime": {}, "system": {}, "exec": {}, "exit": {}, "bless": {},
	"caller": {}, "wait": {}, "unlink": {}, "mkdir": {}, "rmdir": {},
	"rename": {}, "stat": {}, "chmod": {}, "chown": {},
	"pos": {}, "quotemeta": {}, "lstat": {}, "readline": {},
	"readdir": {}, "opendir": {}, "closedir": {}, "glob": {}, "local": {},
	"return": {}, "goto": {}, "exp": {}, "log": {}, "rand": {}, "srand": {},
}
