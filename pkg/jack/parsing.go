package jack

import (
	"fmt"
	"io"
	"os"
	"strings"

	pc "github.com/prataprc/goparsec"

	"github.com/badstreff/nand2tetris/pkg/utils"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & construct of the Jack language.
//
// Each parser combinator either manages a top-level construct (class, subroutine, statement,
// expression, ...) or some piece of it: namely tokens, identifiers and literals. Comments can
// appear wherever a class member or a statement is expected, so they're interleaved via OrdChoice
// at every such point instead of being stripped out in a separate pre-processing pass.

// Top level object, will generate the traversable AST based on the input plus the PCs below.
var ast = pc.NewAST("jack_program", 0)

var (
	// Parser combinator for an entire Jack source file: exactly one class declaration per file,
	// mirroring the one-class-per-'.jack'-file convention (same as Java's one-class-per-file rule).
	pProgram = ast.ManyUntil("program", nil, pClass, pc.End())

	// Parser combinator for a class declaration, compliant with the following syntax:
	// "class" className "{" classVarDec* subroutineDec* "}"
	pClass = ast.And("class_decl", nil,
		pc.Atom("class", "CLASS"), pIdent, pLBrace,
		ast.Kleene("class_body", nil, ast.OrdChoice("class_item", nil, pClassVarDec, pSubroutineDec, pComment)),
		pRBrace,
	)

	// Parser combinator for a static/field variable declaration, e.g. "field int x, y;"
	pClassVarDec = ast.And("class_var_dec", nil, pFieldKind, pDataType, pVarNameList, pSemi)
	pFieldKind   = ast.OrdChoice("field_kind", nil, pc.Atom("static", "STATIC"), pc.Atom("field", "FIELD"))

	// Parser combinator for a subroutine declaration (constructor, function or method)
	pSubroutineDec = ast.And("subroutine_dec", nil,
		pSubroutineKind, pReturnType, pIdent,
		pLParen, pParamList, pRParen,
		pSubroutineBody,
	)
	pSubroutineKind = ast.OrdChoice("subroutine_kind", nil,
		pc.Atom("constructor", "CONSTRUCTOR"), pc.Atom("function", "FUNCTION"), pc.Atom("method", "METHOD"),
	)
	pReturnType = ast.OrdChoice("return_type", nil, pc.Atom("void", "VOID"), pDataType)

	// Comma separated (possibly empty) list of "type name" pairs, e.g. "int x, Array a"
	pParamList = ast.Kleene("param_list", nil, ast.And("param", nil, pDataType, pIdent), pComma)

	// Parser combinator for a subroutine body: local var declarations followed by statements
	pSubroutineBody = ast.And("subroutine_body", nil,
		pLBrace,
		ast.Kleene("var_decs", nil, pVarDec),
		ast.Kleene("statements", nil, ast.OrdChoice("stmt_item", nil, pStatement, pComment)),
		pRBrace,
	)

	// Parser combinator for a local variable declaration, e.g. "var int i, j;"
	pVarDec = ast.And("var_dec", nil, pc.Atom("var", "VAR"), pDataType, pVarNameList, pSemi)

	// One or more comma separated variable names, e.g. "x, y, z"
	pVarNameList = ast.Many("var_names", nil, pIdent, pComma)

	// Parser combinator for comments, supports both single and multi line flavors
	pComment = ast.OrdChoice("comment", nil,
		// Single line comments (e.g. "// This is a comment")
		ast.And("sl_comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT")),
		// Multi line comments (e.g. "/* This is a comment */")
		ast.And("ml_comment", nil, pc.Token(`/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`, "COMMENT")),
	)
)

var (
	pStatement = ast.OrdChoice("statement", nil, pLetStmt, pIfStmt, pWhileStmt, pDoStmt, pReturnStmt)

	// "let" varName ("[" expression "]")? "=" expression ";"
	pLetStmt = ast.And("let_stmt", nil,
		pc.Atom("let", "LET"), pIdent,
		ast.Maybe("maybe_index", nil, ast.And("array_index", nil, pLBracket, pExpr, pRBracket)),
		pc.Atom("=", "EQUALS"), pExpr, pSemi,
	)

	// "if" "(" expression ")" "{" statements "}" ("else" "{" statements "}")?
	pIfStmt = ast.And("if_stmt", nil,
		pc.Atom("if", "IF"), pLParen, pExpr, pRParen,
		pLBrace, ast.Kleene("then_block", nil, ast.OrdChoice("then_item", nil, pStatement, pComment)), pRBrace,
		ast.Maybe("maybe_else", nil, ast.And("else_block", nil,
			pc.Atom("else", "ELSE"), pLBrace,
			ast.Kleene("else_stmts", nil, ast.OrdChoice("else_item", nil, pStatement, pComment)), pRBrace,
		)),
	)

	// "while" "(" expression ")" "{" statements "}"
	pWhileStmt = ast.And("while_stmt", nil,
		pc.Atom("while", "WHILE"), pLParen, pExpr, pRParen,
		pLBrace, ast.Kleene("while_block", nil, ast.OrdChoice("while_item", nil, pStatement, pComment)), pRBrace,
	)

	// "do" subroutineCall ";"
	pDoStmt = ast.And("do_stmt", nil, pc.Atom("do", "DO"), pSubroutineCall, pSemi)

	// "return" expression? ";"
	pReturnStmt = ast.And("return_stmt", nil, pc.Atom("return", "RETURN"), ast.Maybe("maybe_expr", nil, pExpr), pSemi)
)

var (
	// expression: term (op term)*, Jack has no operator precedence: it's evaluated strictly left to right
	pExpr = ast.And("expr", nil, pTerm, ast.Kleene("expr_rest", nil, ast.And("op_term", nil, pOp, pTerm)))

	pOp = ast.OrdChoice("op", nil,
		pc.Atom("+", "+"), pc.Atom("-", "-"), pc.Atom("*", "*"), pc.Atom("/", "/"),
		pc.Atom("&", "&"), pc.Atom("|", "|"), pc.Atom("<", "<"), pc.Atom(">", ">"), pc.Atom("=", "="),
	)

	// term, tried in this specific order so more specific forms are matched before the bare
	// identifier fallback (an 'ident [' must not be consumed as a lone 'ident' term, and so on).
	pTerm = ast.OrdChoice("term", nil,
		pc.Int(), pStringConst, pKeywordConst,
		pArrayExpr, pExtCall, pLocalCall, pParenExpr, pUnaryExpr,
		pIdent, // bare variable reference, must be tried last among the identifier-led forms
	)

	pStringConst = pc.Token(`"(?:\\.|[^"\\])*"`, "STRING")
	pKeywordConst = ast.OrdChoice("keyword_const", nil,
		pc.Atom("true", "TRUE"), pc.Atom("false", "FALSE"), pc.Atom("null", "NULL"), pc.Atom("this", "THIS"),
	)

	// varName "[" expression "]"
	pArrayExpr = ast.And("array_expr", nil, pIdent, pLBracket, pExpr, pRBracket)

	// (className | varName) "." subroutineName "(" expressionList ")"
	pExtCall = ast.And("ext_call", nil, pIdent, pDot, pIdent, pLParen, pExprList, pRParen)
	// subroutineName "(" expressionList ")"
	pLocalCall = ast.And("local_call", nil, pIdent, pLParen, pExprList, pRParen)
	// Either form of subroutine call, used stand-alone as the target of a "do" statement.
	pSubroutineCall = ast.OrdChoice("subroutine_call", nil, pExtCall, pLocalCall)

	// "(" expression ")"
	pParenExpr = ast.And("paren_expr", nil, pLParen, pExpr, pRParen)

	// unaryOp term
	pUnaryExpr = ast.And("unary_expr", nil, pUnaryOp, pTerm)
	pUnaryOp   = ast.OrdChoice("unary_op", nil, pc.Atom("-", "-"), pc.Atom("~", "~"))

	// Comma separated (possibly empty) list of expressions, e.g. "1, x, f(2)"
	pExprList = ast.Kleene("expr_list", nil, pExpr, pComma)
)

var (
	// Generic Identifier parser (for class, subroutine and variable names)
	// NOTE: A Jack identifier is a sequence of letters, digits and underscores, not starting with a digit.
	pIdent = pc.Token(`[A-Za-z_][0-9a-zA-Z_]*`, "IDENT")

	pDot      = pc.Atom(".", "DOT")
	pSemi     = pc.Atom(";", "SEMI")
	pComma    = pc.Atom(",", "COMMA")
	pLBrace   = pc.Atom("{", "LBRACE")
	pRBrace   = pc.Atom("}", "RBRACE")
	pLParen   = pc.Atom("(", "LPAREN")
	pRParen   = pc.Atom(")", "RPAREN")
	pLBracket = pc.Atom("[", "LBRACKET")
	pRBracket = pc.Atom("]", "RBRACKET")

	// Primitive (and user-defined class) type parser, used for fields, params, locals and return types
	pDataType = ast.OrdChoice("data_type", nil,
		pc.Atom("int", "INT"), pc.Atom("char", "CHAR"), pc.Atom("boolean", "BOOLEAN"), pIdent,
	)
)

// ----------------------------------------------------------------------------
// Jack Parser

// This section defines the Parser for the nand2tetris Jack language.
//
// It uses parser combinator(s) to obtain the AST from the source code (the latter can be provided)
// in multiple ways using a generic io.Reader, the library reads up the feature flags (as env vars):
// - PARSEC_DEBUG: Verbose logging to inspect which of the PCs gets triggered and match
// - EXPORT_AST:   Exports in the DEBUG_FOLDER a Graphviz representation of the AST
// - PRINT_AST:    Print on the stdout a textual representation of the AST
type Parser struct{ reader io.Reader }

// Initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parser entrypoint divides the 2 phases of the parsing pipeline
// Text --> AST: This step is done using PCs and returns a generic traversable AST
// AST --> IR: This step is done by traversing the AST and extracting the 'jack.Class'
func (p *Parser) Parse() (Class, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return Class{}, fmt.Errorf("cannot read from 'io.Reader': %s", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return Class{}, fmt.Errorf("failed to parse AST from input content")
	}

	return p.FromAST(root)
}

// Scans the textual input stream coming from the 'reader' method and returns a traversable AST
// (Abstract Syntax Tree) that can be eventually visited to extract/transform the info available.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {

	// Feature flag: Enable 'goparsec' library's debug logs
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	// We generate the traversable Abstract Syntax Tree from the source content
	root, _ := ast.Parsewith(pProgram, pc.NewScanner(source))

	// Feature flag: Enables export of the AST as Dot file (debug.ast.dot)
	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()

		file.Write([]byte(ast.Dotstring("\"Jack AST\"")))
	}

	// Feature flag: Enables pretty printing of the AST on the console
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}
	// TODO (hmny): This hardcoding to true should be changed
	return root, true // Success is based on the reaching of 'EOF'
}

// This function takes the root node of the raw parsed AST and does a DFS on it parsing
// one by one each subtree and returning a 'jack.Class' that can be used as in-memory and
// type-safe AST not dependent on the parsing library used.
func (p *Parser) FromAST(root pc.Queryable) (Class, error) {
	if root.GetName() != "program" {
		return Class{}, fmt.Errorf("expected node 'program', found %s", root.GetName())
	}
	if len(root.GetChildren()) != 1 {
		return Class{}, fmt.Errorf("expected exactly one class declaration per file, found %d", len(root.GetChildren()))
	}

	return p.HandleClass(root.GetChildren()[0])
}

// Specialized function to convert a "class_decl" node to a 'jack.Class'.
func (p *Parser) HandleClass(node pc.Queryable) (Class, error) {
	if node.GetName() != "class_decl" {
		return Class{}, fmt.Errorf("expected node 'class_decl', got %s", node.GetName())
	}

	children := node.GetChildren()
	class := Class{
		Name:        children[1].GetValue(),
		Fields:      utils.OrderedMap[string, Variable]{},
		Subroutines: utils.OrderedMap[string, Subroutine]{},
	}

	for _, item := range children[3].GetChildren() {
		switch item.GetName() {
		case "class_var_dec":
			vars, err := p.HandleClassVarDec(item)
			if err != nil {
				return Class{}, fmt.Errorf("error handling field declaration: %w", err)
			}
			for _, variable := range vars {
				class.Fields.Set(variable.Name, variable)
			}

		case "subroutine_dec":
			subroutine, err := p.HandleSubroutineDec(item)
			if err != nil {
				return Class{}, fmt.Errorf("error handling subroutine declaration: %w", err)
			}
			class.Subroutines.Set(subroutine.Name, subroutine)

		case "sl_comment", "ml_comment":
			continue

		default:
			return Class{}, fmt.Errorf("unrecognized node '%s' in class body", item.GetName())
		}
	}

	return class, nil
}

// Specialized function to convert a "class_var_dec" node to a list of 'jack.Variable'.
func (p *Parser) HandleClassVarDec(node pc.Queryable) ([]Variable, error) {
	children := node.GetChildren()
	if len(children) != 4 {
		return nil, fmt.Errorf("expected node 'class_var_dec' with 4 children, got %d", len(children))
	}

	varType := Field
	if children[0].GetValue() == "static" {
		varType = Static
	}

	dataType, err := p.HandleDataType(children[1])
	if err != nil {
		return nil, fmt.Errorf("error handling field data type: %w", err)
	}

	variables := []Variable{}
	for _, name := range children[2].GetChildren() {
		variables = append(variables, Variable{Name: name.GetValue(), VarType: varType, DataType: dataType})
	}

	return variables, nil
}

// Specialized function to convert a "var_dec" node to a list of 'jack.Variable'.
func (p *Parser) HandleVarDec(node pc.Queryable) ([]Variable, error) {
	children := node.GetChildren()
	if len(children) != 4 {
		return nil, fmt.Errorf("expected node 'var_dec' with 4 children, got %d", len(children))
	}

	dataType, err := p.HandleDataType(children[1])
	if err != nil {
		return nil, fmt.Errorf("error handling local variable data type: %w", err)
	}

	variables := []Variable{}
	for _, name := range children[2].GetChildren() {
		variables = append(variables, Variable{Name: name.GetValue(), VarType: Local, DataType: dataType})
	}

	return variables, nil
}

// Specialized function to convert a "data_type" leaf (INT | CHAR | BOOLEAN | IDENT) to a 'jack.DataType'.
func (p *Parser) HandleDataType(node pc.Queryable) (DataType, error) {
	switch node.GetName() {
	case "INT":
		return DataType{Main: Int}, nil
	case "CHAR":
		return DataType{Main: Char}, nil
	case "BOOLEAN":
		return DataType{Main: Bool}, nil
	case "IDENT":
		return DataType{Main: Object, Subtype: node.GetValue()}, nil
	default:
		return DataType{}, fmt.Errorf("unrecognized data type node '%s'", node.GetName())
	}
}

// Specialized function to convert a "return_type" leaf (VOID | data_type) to a 'jack.DataType'.
func (p *Parser) HandleReturnType(node pc.Queryable) (DataType, error) {
	if node.GetName() == "VOID" {
		return DataType{Main: Void}, nil
	}
	return p.HandleDataType(node)
}

// Specialized function to convert a "subroutine_dec" node to a 'jack.Subroutine'.
func (p *Parser) HandleSubroutineDec(node pc.Queryable) (Subroutine, error) {
	children := node.GetChildren()
	if len(children) != 7 {
		return Subroutine{}, fmt.Errorf("expected node 'subroutine_dec' with 7 children, got %d", len(children))
	}

	subroutineType := Function
	switch children[0].GetValue() {
	case "constructor":
		subroutineType = Constructor
	case "method":
		subroutineType = Method
	}

	returnType, err := p.HandleReturnType(children[1])
	if err != nil {
		return Subroutine{}, fmt.Errorf("error handling return type: %w", err)
	}

	arguments := []Variable{}
	for _, param := range children[4].GetChildren() {
		paramChildren := param.GetChildren()
		if len(paramChildren) != 2 {
			return Subroutine{}, fmt.Errorf("expected node 'param' with 2 children, got %d", len(paramChildren))
		}

		dataType, err := p.HandleDataType(paramChildren[0])
		if err != nil {
			return Subroutine{}, fmt.Errorf("error handling parameter data type: %w", err)
		}
		arguments = append(arguments, Variable{Name: paramChildren[1].GetValue(), VarType: Parameter, DataType: dataType})
	}

	statements, err := p.HandleSubroutineBody(children[6])
	if err != nil {
		return Subroutine{}, fmt.Errorf("error handling subroutine body: %w", err)
	}

	return Subroutine{
		Name:       children[2].GetValue(),
		Type:       subroutineType,
		Return:     returnType,
		Arguments:  arguments,
		Statements: statements,
	}, nil
}

// Specialized function to convert a "subroutine_body" node to a list of 'jack.Statement'. Local
// variable declarations are lowered to leading 'jack.VarStmt' entries, same as 'jack.Lowerer' expects.
func (p *Parser) HandleSubroutineBody(node pc.Queryable) ([]Statement, error) {
	if node.GetName() != "subroutine_body" {
		return nil, fmt.Errorf("expected node 'subroutine_body', got %s", node.GetName())
	}

	children := node.GetChildren()
	if len(children) != 4 {
		return nil, fmt.Errorf("expected node 'subroutine_body' with 4 children, got %d", len(children))
	}

	statements := []Statement{}

	for _, varDec := range children[1].GetChildren() {
		vars, err := p.HandleVarDec(varDec)
		if err != nil {
			return nil, fmt.Errorf("error handling local variable declaration: %w", err)
		}
		statements = append(statements, VarStmt{Vars: vars})
	}

	for _, item := range children[2].GetChildren() {
		if item.GetName() == "sl_comment" || item.GetName() == "ml_comment" {
			continue
		}

		stmt, err := p.HandleStatement(item)
		if err != nil {
			return nil, fmt.Errorf("error handling statement: %w", err)
		}
		statements = append(statements, stmt)
	}

	return statements, nil
}

// Generalized function to convert multiple statement node types to a 'jack.Statement'.
func (p *Parser) HandleStatement(node pc.Queryable) (Statement, error) {
	switch node.GetName() {
	case "let_stmt":
		return p.HandleLetStmt(node)
	case "if_stmt":
		return p.HandleIfStmt(node)
	case "while_stmt":
		return p.HandleWhileStmt(node)
	case "do_stmt":
		return p.HandleDoStmt(node)
	case "return_stmt":
		return p.HandleReturnStmt(node)
	default:
		return nil, fmt.Errorf("unrecognized statement node '%s'", node.GetName())
	}
}

// Specialized function to convert a "let_stmt" node to a 'jack.LetStmt'.
func (p *Parser) HandleLetStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 6 {
		return nil, fmt.Errorf("expected node 'let_stmt' with 6 children, got %d", len(children))
	}

	var lhs Expression = VarExpr{Var: children[1].GetValue()}
	if children[2].GetName() == "array_index" {
		indexChildren := children[2].GetChildren()
		index, err := p.HandleExpr(indexChildren[1])
		if err != nil {
			return nil, fmt.Errorf("error handling array index expression: %w", err)
		}
		lhs = ArrayExpr{Var: children[1].GetValue(), Index: index}
	}

	rhs, err := p.HandleExpr(children[4])
	if err != nil {
		return nil, fmt.Errorf("error handling RHS expression: %w", err)
	}

	return LetStmt{Lhs: lhs, Rhs: rhs}, nil
}

// Specialized function to convert an "if_stmt" node to a 'jack.IfStmt'.
func (p *Parser) HandleIfStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 8 {
		return nil, fmt.Errorf("expected node 'if_stmt' with 8 children, got %d", len(children))
	}

	condition, err := p.HandleExpr(children[2])
	if err != nil {
		return nil, fmt.Errorf("error handling if condition: %w", err)
	}

	thenBlock := []Statement{}
	for _, item := range children[5].GetChildren() {
		if item.GetName() == "sl_comment" || item.GetName() == "ml_comment" {
			continue
		}
		stmt, err := p.HandleStatement(item)
		if err != nil {
			return nil, fmt.Errorf("error handling statement in 'then' block: %w", err)
		}
		thenBlock = append(thenBlock, stmt)
	}

	elseBlock := []Statement{}
	if maybeElse := children[7]; maybeElse.GetName() == "else_block" {
		elseChildren := maybeElse.GetChildren()
		for _, item := range elseChildren[2].GetChildren() {
			if item.GetName() == "sl_comment" || item.GetName() == "ml_comment" {
				continue
			}
			stmt, err := p.HandleStatement(item)
			if err != nil {
				return nil, fmt.Errorf("error handling statement in 'else' block: %w", err)
			}
			elseBlock = append(elseBlock, stmt)
		}
	}

	return IfStmt{Condition: condition, ThenBlock: thenBlock, ElseBlock: elseBlock}, nil
}

// Specialized function to convert a "while_stmt" node to a 'jack.WhileStmt'.
func (p *Parser) HandleWhileStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 7 {
		return nil, fmt.Errorf("expected node 'while_stmt' with 7 children, got %d", len(children))
	}

	condition, err := p.HandleExpr(children[2])
	if err != nil {
		return nil, fmt.Errorf("error handling while condition: %w", err)
	}

	block := []Statement{}
	for _, item := range children[5].GetChildren() {
		if item.GetName() == "sl_comment" || item.GetName() == "ml_comment" {
			continue
		}
		stmt, err := p.HandleStatement(item)
		if err != nil {
			return nil, fmt.Errorf("error handling statement in while block: %w", err)
		}
		block = append(block, stmt)
	}

	return WhileStmt{Condition: condition, Block: block}, nil
}

// Specialized function to convert a "do_stmt" node to a 'jack.DoStmt'.
func (p *Parser) HandleDoStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("expected node 'do_stmt' with 3 children, got %d", len(children))
	}

	call, err := p.HandleSubroutineCallNode(children[1])
	if err != nil {
		return nil, fmt.Errorf("error handling subroutine call: %w", err)
	}

	return DoStmt{FuncCall: call}, nil
}

// Specialized function to convert a "return_stmt" node to a 'jack.ReturnStmt'.
func (p *Parser) HandleReturnStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("expected node 'return_stmt' with 3 children, got %d", len(children))
	}

	if children[1].GetName() != "expr" {
		return ReturnStmt{Expr: nil}, nil
	}

	expr, err := p.HandleExpr(children[1])
	if err != nil {
		return nil, fmt.Errorf("error handling return expression: %w", err)
	}

	return ReturnStmt{Expr: expr}, nil
}

// Specialized function to convert an "expr" node to a 'jack.Expression'. Jack evaluates left to
// right without operator precedence, so the expression chain folds into a left-leaning tree.
func (p *Parser) HandleExpr(node pc.Queryable) (Expression, error) {
	if node.GetName() != "expr" {
		return nil, fmt.Errorf("expected node 'expr', got %s", node.GetName())
	}

	children := node.GetChildren()
	if len(children) != 2 {
		return nil, fmt.Errorf("expected node 'expr' with 2 children, got %d", len(children))
	}

	lhs, err := p.HandleTerm(children[0])
	if err != nil {
		return nil, fmt.Errorf("error handling leading term: %w", err)
	}

	for _, opTerm := range children[1].GetChildren() {
		opTermChildren := opTerm.GetChildren()
		if len(opTermChildren) != 2 {
			return nil, fmt.Errorf("expected node 'op_term' with 2 children, got %d", len(opTermChildren))
		}

		exprType, err := p.HandleOp(opTermChildren[0])
		if err != nil {
			return nil, fmt.Errorf("error handling operator: %w", err)
		}

		rhs, err := p.HandleTerm(opTermChildren[1])
		if err != nil {
			return nil, fmt.Errorf("error handling trailing term: %w", err)
		}

		lhs = BinaryExpr{Type: exprType, Lhs: lhs, Rhs: rhs}
	}

	return lhs, nil
}

// Specialized function to convert an operator leaf node to a 'jack.ExprType'.
func (p *Parser) HandleOp(node pc.Queryable) (ExprType, error) {
	switch node.GetValue() {
	case "+":
		return Plus, nil
	case "-":
		return Minus, nil
	case "*":
		return Multiply, nil
	case "/":
		return Divide, nil
	case "&":
		return BoolAnd, nil
	case "|":
		return BoolOr, nil
	case "<":
		return LessThan, nil
	case ">":
		return GreatThan, nil
	case "=":
		return Equal, nil
	default:
		return "", fmt.Errorf("unrecognized operator '%s'", node.GetValue())
	}
}

// Generalized function to convert multiple term node types to a 'jack.Expression'.
func (p *Parser) HandleTerm(node pc.Queryable) (Expression, error) {
	switch node.GetName() {
	case "INT":
		return LiteralExpr{Type: DataType{Main: Int}, Value: node.GetValue()}, nil

	case "STRING":
		return LiteralExpr{Type: DataType{Main: String}, Value: p.unquote(node.GetValue())}, nil

	case "TRUE":
		return LiteralExpr{Type: DataType{Main: Bool}, Value: "true"}, nil
	case "FALSE":
		return LiteralExpr{Type: DataType{Main: Bool}, Value: "false"}, nil
	case "NULL":
		return LiteralExpr{Type: DataType{Main: Object}, Value: "null"}, nil
	case "THIS":
		return VarExpr{Var: "this"}, nil

	case "array_expr":
		return p.HandleArrayExpr(node)
	case "ext_call", "local_call":
		return p.HandleSubroutineCallNode(node)
	case "paren_expr":
		children := node.GetChildren()
		if len(children) != 3 {
			return nil, fmt.Errorf("expected node 'paren_expr' with 3 children, got %d", len(children))
		}
		return p.HandleExpr(children[1])
	case "unary_expr":
		return p.HandleUnaryExpr(node)

	case "IDENT":
		return VarExpr{Var: node.GetValue()}, nil

	default:
		return nil, fmt.Errorf("unrecognized term node '%s'", node.GetName())
	}
}

// Specialized function to convert an "array_expr" node to a 'jack.ArrayExpr'.
func (p *Parser) HandleArrayExpr(node pc.Queryable) (Expression, error) {
	children := node.GetChildren()
	if len(children) != 4 {
		return nil, fmt.Errorf("expected node 'array_expr' with 4 children, got %d", len(children))
	}

	index, err := p.HandleExpr(children[2])
	if err != nil {
		return nil, fmt.Errorf("error handling array index expression: %w", err)
	}

	return ArrayExpr{Var: children[0].GetValue(), Index: index}, nil
}

// Specialized function to convert a "unary_expr" node to a 'jack.UnaryExpr'.
func (p *Parser) HandleUnaryExpr(node pc.Queryable) (Expression, error) {
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, fmt.Errorf("expected node 'unary_expr' with 2 children, got %d", len(children))
	}

	rhs, err := p.HandleTerm(children[1])
	if err != nil {
		return nil, fmt.Errorf("error handling nested term: %w", err)
	}

	switch children[0].GetValue() {
	case "-":
		return UnaryExpr{Type: Negation, Rhs: rhs}, nil
	case "~":
		return UnaryExpr{Type: BoolNot, Rhs: rhs}, nil
	default:
		return nil, fmt.Errorf("unrecognized unary operator '%s'", children[0].GetValue())
	}
}

// Specialized function to convert an "ext_call"/"local_call" node to a 'jack.FuncCallExpr'.
func (p *Parser) HandleSubroutineCallNode(node pc.Queryable) (FuncCallExpr, error) {
	switch node.GetName() {
	case "ext_call":
		children := node.GetChildren()
		if len(children) != 6 {
			return FuncCallExpr{}, fmt.Errorf("expected node 'ext_call' with 6 children, got %d", len(children))
		}

		args, err := p.HandleExprList(children[4])
		if err != nil {
			return FuncCallExpr{}, fmt.Errorf("error handling call arguments: %w", err)
		}

		return FuncCallExpr{
			IsExtCall: true,
			Var:       children[0].GetValue(),
			FuncName:  children[2].GetValue(),
			Arguments: args,
		}, nil

	case "local_call":
		children := node.GetChildren()
		if len(children) != 4 {
			return FuncCallExpr{}, fmt.Errorf("expected node 'local_call' with 4 children, got %d", len(children))
		}

		args, err := p.HandleExprList(children[2])
		if err != nil {
			return FuncCallExpr{}, fmt.Errorf("error handling call arguments: %w", err)
		}

		return FuncCallExpr{
			IsExtCall: false,
			FuncName:  children[0].GetValue(),
			Arguments: args,
		}, nil

	default:
		return FuncCallExpr{}, fmt.Errorf("unrecognized subroutine call node '%s'", node.GetName())
	}
}

// Specialized function to convert an "expr_list" node to a list of 'jack.Expression'.
func (p *Parser) HandleExprList(node pc.Queryable) ([]Expression, error) {
	exprs := []Expression{}
	for _, child := range node.GetChildren() {
		expr, err := p.HandleExpr(child)
		if err != nil {
			return nil, fmt.Errorf("error handling expression in list: %w", err)
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// Strips the surrounding double quotes off a raw "STRING" token value.
func (p *Parser) unquote(raw string) string {
	return strings.TrimSuffix(strings.TrimPrefix(raw, `"`), `"`)
}
