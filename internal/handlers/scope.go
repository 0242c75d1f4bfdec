package handlers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"concretrack-backend/internal/ctxkeys"
)

// appendBranchScope adds a branch scope filter to a dynamic WHERE clause.
// colExpr is the SQL column expression to filter on (e.g. "e.branch").
// If the user has global scope (admin/super_admin), nothing is added.
func appendBranchScope(ctx context.Context, where string, args []interface{}, argIdx int, colExpr string) (string, []interface{}, int) {
	scope := ctxkeys.GetBranchScope(ctx)
	if scope == nil {
		return where, args, argIdx
	}
	where += fmt.Sprintf(" AND %s = ANY($%d)", colExpr, argIdx)
	args = append(args, scope)
	argIdx++
	return where, args, argIdx
}

// checkBranchAccess verifies that the given branch is within the user's scope.
func checkBranchAccess(ctx context.Context, branch string) bool {
	scope := ctxkeys.GetBranchScope(ctx)
	if scope == nil {
		return true
	}
	for _, b := range scope {
		if b == branch {
			return true
		}
	}
	return false
}

// checkEmployeeAccess looks up the employee's branch and checks scope.
func checkEmployeeAccess(ctx context.Context, pool *pgxpool.Pool, employeeID string) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var branch string
	err := pool.QueryRow(ctx, "SELECT branch FROM employees WHERE id = $1", employeeID).Scan(&branch)
	if err != nil {
		return false
	}
	return checkBranchAccess(ctx, branch)
}

// checkDocumentAccess looks up the document's employee → branch and checks scope.
func checkDocumentAccess(ctx context.Context, pool *pgxpool.Pool, documentID string) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var branch string
	err := pool.QueryRow(ctx,
		"SELECT e.branch FROM documents d JOIN employees e ON e.id = d.employee_id WHERE d.id = $1",
		documentID,
	).Scan(&branch)
	if err != nil {
		return false
	}
	return checkBranchAccess(ctx, branch)
}
