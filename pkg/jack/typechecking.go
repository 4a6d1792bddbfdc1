package jack

import (
	"fmt"
	"strconv"
	"strings"
)

// ----------------------------------------------------------------------------
// Jack Type Checker

// The TypeChecker takes a 'jack.Program' and validates it without producing any output.
//
// It mirrors the Lowerer's DFS traversal (same scope management, same per-node-type dispatch)
// but instead of emitting 'vm.Operation(s)' it infers and propagates a 'DataType' for every
// expression, catching type mismatches, unresolved variables and arity errors before lowering
// ever gets a chance to run (and produce bogus VM code out of an invalid program).
type TypeChecker struct {
	program Program
	scopes  ScopeTable // Keeps track of the scopes and declared variables inside each one
	current Subroutine // The subroutine currently being checked, used to validate 'return' statements
}

func NewTypeChecker(program Program) TypeChecker {
	return TypeChecker{program: program}
}

func (tc *TypeChecker) Check() (bool, error) {
	if tc.program == nil {
		return false, fmt.Errorf("the given 'program' is empty or nil")
	}

	for name, class := range tc.program {
		if _, err := tc.HandleClass(class); err != nil {
			return false, fmt.Errorf("error handling typecheck of class '%s': %w", name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Class' and nested fields.
func (tc *TypeChecker) HandleClass(class Class) (bool, error) {
	tc.scopes.PushClassScope(class.Name) // Keep track of the current scope being processed
	defer tc.scopes.PopClassScope()      // Reset the function name after processing

	for _, field := range class.Fields.Entries() {
		if _, err := tc.HandleVarStmt(VarStmt{Vars: []Variable{field}}); err != nil {
			return false, fmt.Errorf("error handling field '%s' in class '%s': %w", field.Name, class.Name, err)
		}
	}

	for _, subroutine := range class.Subroutines.Entries() {
		if _, err := tc.HandleSubroutine(subroutine); err != nil {
			return false, fmt.Errorf("error handling subroutine '%s' in class '%s': %w", subroutine.Name, class.Name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Subroutine' and nested fields.
func (tc *TypeChecker) HandleSubroutine(subroutine Subroutine) (bool, error) {
	tc.scopes.PushSubRoutineScope(subroutine.Name) // Keep track of the current subroutine function being processed
	defer tc.scopes.PopSubroutineScope()           // Reset the function name after processing

	previous := tc.current
	tc.current = subroutine
	defer func() { tc.current = previous }()

	if subroutine.Type == Method {
		// Mirrors the hidden 'this' argument the Lowerer registers for methods, so that
		// resolving 'this'-qualified fields inside the body behaves exactly the same way.
		tc.scopes.RegisterVariable(Variable{Name: "__obj", VarType: Parameter, DataType: DataType{Main: Object}})
	}

	// We add to the current scope also all of the arguments of the subroutine
	for _, arg := range subroutine.Arguments {
		// Like this we're actually supporting shadowing of variables, so if a variable
		// with the same name is already present in the current scope, we just temporarily
		// override it with the most update one instead of returning an error (like Go does).
		tc.scopes.RegisterVariable(arg)
	}

	for _, stmt := range subroutine.Statements {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling nested statement %T: %w", stmt, err)
		}
	}

	return true, nil
}

// Generalized function to type-check multiple statements types.
func (tc *TypeChecker) HandleStatement(stmt Statement) (bool, error) {
	switch tStmt := stmt.(type) {
	case DoStmt:
		return tc.HandleDoStmt(tStmt)
	case VarStmt:
		return tc.HandleVarStmt(tStmt)
	case LetStmt:
		return tc.HandleLetStmt(tStmt)
	case IfStmt:
		return tc.HandleIfStmt(tStmt)
	case WhileStmt:
		return tc.HandleWhileStmt(tStmt)
	case ReturnStmt:
		return tc.HandleReturnStmt(tStmt)
	default:
		return false, fmt.Errorf("unrecognized statement: %T", stmt)
	}
}

// Specialized function to type-check a 'jack.DoStmt'.
func (tc *TypeChecker) HandleDoStmt(statement DoStmt) (bool, error) {
	if _, err := tc.HandleExpression(statement.FuncCall); err != nil {
		return false, fmt.Errorf("error handling nested function call expression: %w", err)
	}
	return true, nil
}

// Specialized function to type-check a 'jack.VarStmt'.
func (tc *TypeChecker) HandleVarStmt(statement VarStmt) (bool, error) {
	for _, variable := range statement.Vars {
		tc.scopes.RegisterVariable(variable)
	}
	return true, nil
}

// Specialized function to type-check a 'jack.LetStmt'.
func (tc *TypeChecker) HandleLetStmt(statement LetStmt) (bool, error) {
	rhsType, err := tc.HandleExpression(statement.Rhs)
	if err != nil {
		return false, fmt.Errorf("error handling RHS expression: %w", err)
	}

	switch lhs := statement.Lhs.(type) {
	case VarExpr:
		_, variable, err := tc.scopes.ResolveVariable(lhs.Var)
		if err != nil {
			return false, fmt.Errorf("error resolving LHS variable '%s': %w", lhs.Var, err)
		}
		if !tc.assignable(variable.DataType, rhsType) {
			return false, fmt.Errorf("cannot assign value of type '%s' to variable '%s' of type '%s'", rhsType.Main, lhs.Var, variable.DataType.Main)
		}

	case ArrayExpr:
		_, variable, err := tc.scopes.ResolveVariable(lhs.Var)
		if err != nil {
			return false, fmt.Errorf("error resolving LHS array variable '%s': %w", lhs.Var, err)
		}
		if variable.DataType.Main != Object {
			return false, fmt.Errorf("cannot index non-array variable '%s'", lhs.Var)
		}

		idxType, err := tc.HandleExpression(lhs.Index)
		if err != nil {
			return false, fmt.Errorf("error handling array index expression: %w", err)
		}
		if idxType.Main != Int {
			return false, fmt.Errorf("array index must be an 'int', got '%s'", idxType.Main)
		}

	default:
		return false, fmt.Errorf("LHS expression must be either a 'VarExpr' or an 'ArrayExpr', got: %T", statement.Lhs)
	}

	return true, nil
}

// Specialized function to type-check a 'jack.WhileStmt'.
func (tc *TypeChecker) HandleWhileStmt(statement WhileStmt) (bool, error) {
	condType, err := tc.HandleExpression(statement.Condition)
	if err != nil {
		return false, fmt.Errorf("error handling while condition expression: %w", err)
	}
	if condType.Main != Bool {
		return false, fmt.Errorf("while condition must be a 'bool', got '%s'", condType.Main)
	}

	for _, stmt := range statement.Block {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in while block: %w", err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.IfStmt'.
func (tc *TypeChecker) HandleIfStmt(statement IfStmt) (bool, error) {
	condType, err := tc.HandleExpression(statement.Condition)
	if err != nil {
		return false, fmt.Errorf("error handling if condition expression: %w", err)
	}
	if condType.Main != Bool {
		return false, fmt.Errorf("if condition must be a 'bool', got '%s'", condType.Main)
	}

	for _, stmt := range statement.ThenBlock {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in 'then' block: %w", err)
		}
	}

	for _, stmt := range statement.ElseBlock {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in 'else' block: %w", err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.ReturnStmt'.
func (tc *TypeChecker) HandleReturnStmt(statement ReturnStmt) (bool, error) {
	if statement.Expr == nil {
		if tc.current.Return.Main != Void {
			return false, fmt.Errorf("subroutine '%s' must return a value of type '%s'", tc.current.Name, tc.current.Return.Main)
		}
		return true, nil
	}

	exprType, err := tc.HandleExpression(statement.Expr)
	if err != nil {
		return false, fmt.Errorf("error handling return expression: %w", err)
	}
	if !tc.assignable(tc.current.Return, exprType) {
		return false, fmt.Errorf("subroutine '%s' returns '%s', got '%s'", tc.current.Name, tc.current.Return.Main, exprType.Main)
	}

	return true, nil
}

// Generalized function to type-check multiple expression types, returning its inferred 'DataType'.
func (tc *TypeChecker) HandleExpression(expr Expression) (DataType, error) {
	switch tExpr := expr.(type) {
	case VarExpr:
		return tc.HandleVarExpr(tExpr)
	case LiteralExpr:
		return tc.HandleLiteralExpr(tExpr)
	case ArrayExpr:
		return tc.HandleArrayExpr(tExpr)
	case UnaryExpr:
		return tc.HandleUnaryExpr(tExpr)
	case BinaryExpr:
		return tc.HandleBinaryExpr(tExpr)
	case FuncCallExpr:
		return tc.HandleFuncCallExpr(tExpr)
	default:
		return DataType{}, fmt.Errorf("unrecognized expression: %T", expr)
	}
}

// Specialized function to type-check a 'jack.VarExpr'.
func (tc *TypeChecker) HandleVarExpr(expression VarExpr) (DataType, error) {
	if expression.Var == "this" {
		return DataType{Main: Object}, nil
	}

	_, variable, err := tc.scopes.ResolveVariable(expression.Var)
	if err != nil {
		return DataType{}, fmt.Errorf("error resolving variable '%s': %w", expression.Var, err)
	}

	return variable.DataType, nil
}

// Specialized function to type-check a 'jack.LiteralExpr'.
func (tc *TypeChecker) HandleLiteralExpr(expression LiteralExpr) (DataType, error) {
	switch expression.Type.Main {
	case Int:
		if _, err := strconv.ParseUint(expression.Value, 10, 16); err != nil {
			return DataType{}, fmt.Errorf("error parsing integer literal '%s': %w", expression.Value, err)
		}
	case Bool:
		if _, err := strconv.ParseBool(expression.Value); err != nil {
			return DataType{}, fmt.Errorf("error parsing bool literal '%s': %w", expression.Value, err)
		}
	case Char:
		if len(expression.Value) != 1 {
			return DataType{}, fmt.Errorf("error parsing char literal '%s'", expression.Value)
		}
	case Object:
		if expression.Value != "null" {
			return DataType{}, fmt.Errorf("object literals are not supported '%s'", expression.Value)
		}
	case String:
		// Any value is a valid string literal payload, nothing further to check here.
	default:
		return DataType{}, fmt.Errorf("unrecognized literal expression type: %s", expression.Type.Main)
	}

	return expression.Type, nil
}

// Specialized function to type-check a 'jack.ArrayExpr'.
func (tc *TypeChecker) HandleArrayExpr(expression ArrayExpr) (DataType, error) {
	_, variable, err := tc.scopes.ResolveVariable(expression.Var)
	if err != nil {
		return DataType{}, fmt.Errorf("error resolving array variable '%s': %w", expression.Var, err)
	}
	if variable.DataType.Main != Object {
		return DataType{}, fmt.Errorf("cannot index non-array variable '%s'", expression.Var)
	}

	idxType, err := tc.HandleExpression(expression.Index)
	if err != nil {
		return DataType{}, fmt.Errorf("error handling array index expression: %w", err)
	}
	if idxType.Main != Int {
		return DataType{}, fmt.Errorf("array index must be an 'int', got '%s'", idxType.Main)
	}

	// Jack arrays are untyped containers, every cell is treated as a plain 'int'.
	return DataType{Main: Int}, nil
}

// Specialized function to type-check a 'jack.UnaryExpr'.
func (tc *TypeChecker) HandleUnaryExpr(expression UnaryExpr) (DataType, error) {
	rhsType, err := tc.HandleExpression(expression.Rhs)
	if err != nil {
		return DataType{}, fmt.Errorf("error handling nested expression: %w", err)
	}

	switch expression.Type {
	case Negation:
		if rhsType.Main != Int {
			return DataType{}, fmt.Errorf("unary '-' requires an 'int' operand, got '%s'", rhsType.Main)
		}
		return DataType{Main: Int}, nil
	case BoolNot:
		if rhsType.Main != Bool {
			return DataType{}, fmt.Errorf("unary '~' requires a 'bool' operand, got '%s'", rhsType.Main)
		}
		return DataType{Main: Bool}, nil
	default:
		return DataType{}, fmt.Errorf("unrecognized unary expression type: %s", expression.Type)
	}
}

// Specialized function to type-check a 'jack.BinaryExpr'.
func (tc *TypeChecker) HandleBinaryExpr(expression BinaryExpr) (DataType, error) {
	lhsType, err := tc.HandleExpression(expression.Lhs)
	if err != nil {
		return DataType{}, fmt.Errorf("error handling nested LHS expression: %w", err)
	}

	rhsType, err := tc.HandleExpression(expression.Rhs)
	if err != nil {
		return DataType{}, fmt.Errorf("error handling nested RHS expression: %w", err)
	}

	switch expression.Type {
	case Plus, Minus, Divide, Multiply:
		if lhsType.Main != Int || rhsType.Main != Int {
			return DataType{}, fmt.Errorf("operator '%s' requires 'int' operands, got '%s' and '%s'", expression.Type, lhsType.Main, rhsType.Main)
		}
		return DataType{Main: Int}, nil

	case BoolOr, BoolAnd:
		if lhsType.Main != Bool || rhsType.Main != Bool {
			return DataType{}, fmt.Errorf("operator '%s' requires 'bool' operands, got '%s' and '%s'", expression.Type, lhsType.Main, rhsType.Main)
		}
		return DataType{Main: Bool}, nil

	case Equal:
		// Jack allows comparing any two values (including objects and 'null') for equality.
		return DataType{Main: Bool}, nil

	case LessThan, GreatThan:
		if lhsType.Main != Int || rhsType.Main != Int {
			return DataType{}, fmt.Errorf("operator '%s' requires 'int' operands, got '%s' and '%s'", expression.Type, lhsType.Main, rhsType.Main)
		}
		return DataType{Main: Bool}, nil

	default:
		return DataType{}, fmt.Errorf("unrecognized binary expression type: %s", expression.Type)
	}
}

// Specialized function to type-check a 'jack.FuncCallExpr'.
func (tc *TypeChecker) HandleFuncCallExpr(expression FuncCallExpr) (DataType, error) {
	for _, expr := range expression.Arguments {
		if _, err := tc.HandleExpression(expr); err != nil {
			return DataType{}, fmt.Errorf("error handling argument expression: %w", err)
		}
	}

	if !expression.IsExtCall { // Instance-to-instance (or same class) function call
		className := strings.Split(tc.scopes.GetScope(), ".")[0] // Get the class name from the scope

		class, exists := tc.program[className]
		if !exists {
			return DataType{}, fmt.Errorf("class definition not found for '%s'", className)
		}
		routine, exists := class.Subroutines.Get(expression.FuncName)
		if !exists {
			return DataType{}, fmt.Errorf("subroutine '%s' not found in class '%s'", expression.FuncName, className)
		}
		if err := tc.checkArity(routine, len(expression.Arguments)); err != nil {
			return DataType{}, err
		}

		return routine.Return, nil
	}

	// We have an external call: first check whether the target is a variable holding an object instance.
	if _, variable, _ := tc.scopes.ResolveVariable(expression.Var); variable != (Variable{}) {
		if variable.DataType.Main != Object {
			return DataType{}, fmt.Errorf("variable '%s' is not an object", expression.Var)
		}

		class, exists := tc.program[variable.DataType.Subtype]
		if !exists {
			return DataType{}, fmt.Errorf("class definition not found for '%s'", variable.DataType.Subtype)
		}
		routine, exists := class.Subroutines.Get(expression.FuncName)
		if !exists {
			return DataType{}, fmt.Errorf("subroutine '%s' not found in class '%s'", expression.FuncName, class.Name)
		}
		if err := tc.checkArity(routine, len(expression.Arguments)); err != nil {
			return DataType{}, err
		}

		return routine.Return, nil
	}

	// Otherwise it must be a call to a constructor or a function (static method) of a known class.
	if class, isClass := tc.program[expression.Var]; isClass {
		routine, exists := class.Subroutines.Get(expression.FuncName)
		if !exists {
			return DataType{}, fmt.Errorf("subroutine '%s' not found in class '%s'", expression.FuncName, class.Name)
		}
		if routine.Type == Method {
			return DataType{}, fmt.Errorf("subroutine '%s' in class '%s' is a method, it requires an object instance to be called", expression.FuncName, class.Name)
		}
		if err := tc.checkArity(routine, len(expression.Arguments)); err != nil {
			return DataType{}, err
		}

		return routine.Return, nil
	}

	return DataType{}, fmt.Errorf("unrecognized function call expression: %s", expression.FuncName)
}

// Checks that the number of arguments provided at a call site matches the subroutine's declaration.
func (tc *TypeChecker) checkArity(routine Subroutine, nArgs int) error {
	if len(routine.Arguments) != nArgs {
		return fmt.Errorf("subroutine '%s' expects %d argument(s), got %d", routine.Name, len(routine.Arguments), nArgs)
	}
	return nil
}

// Checks whether a value of type 'value' can be assigned/returned where a 'target' type is expected.
// Jack's type system is intentionally loose here: object types don't nest into a nominal hierarchy and
// 'null' is a valid value for any object-typed variable (mirrors the flexibility of the real language).
func (tc *TypeChecker) assignable(target, value DataType) bool {
	if target.Main == Object && value.Main == Null {
		return true
	}
	if target.Main == Object && value.Main == Object {
		return true
	}
	return target.Main == value.Main
}
