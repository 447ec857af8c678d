package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

const employeesSQL = `SELECT e.emp_id, e.first_name, e.last_name, e.dept_id, e.salary
FROM emp e
WHERE e.active = :active
--deptFilter
--filters
--orderBy`

const plainEmployeesSQL = `SELECT emp_id, first_name, last_name, dept_id, salary
FROM emp
WHERE active = :active`

type principal struct {
	subject string
	roles   []string
}

func (p principal) Subject() string { return p.subject }

func (p principal) HasRole(role string) bool {
	for _, r := range p.roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	hrUser    = principal{subject: "alice", roles: []string{"hr"}}
	salesUser = principal{subject: "bob", roles: []string{"sales"}}
)

func fullName(row *models.Row, _ *models.QueryContext) (any, error) {
	first, _ := row.Value("firstName").(string)
	last, _ := row.Value("lastName").(string)
	if first == "" && last == "" {
		return nil, nil
	}
	return first + " " + last, nil
}

func employeeAttributes() []models.AttributeDef {
	return []models.AttributeDef{
		{Name: "id", Type: models.TypeInt, Column: "emp_id", Sortable: true},
		{Name: "firstName", Type: models.TypeString, Column: "first_name", Filterable: true, Sortable: true},
		{Name: "lastName", Type: models.TypeString, Column: "last_name", Filterable: true, Sortable: true},
		{Name: "deptId", Type: models.TypeInt, Column: "dept_id", Filterable: true, Sortable: true},
		{Name: "salary", Type: models.TypeDecimal, Column: "salary", Filterable: true, Sortable: true, Security: models.RequireRole("hr")},
		{Name: "fullName", Type: models.TypeString, Virtual: true, Calculator: fullName, DependsOn: []string{"firstName", "lastName"}, Sortable: true, SortProperty: "last_name"},
	}
}

// employeesBuilder declares the employees query used across engine tests.
func employeesBuilder(dialectName string) *models.Builder {
	b := models.NewBuilder("employees").
		SQL(employeesSQL).
		Dialect(dialectName).
		Param(models.ParamDef{Name: "active", Type: models.TypeBool, Default: true}).
		Param(models.ParamDef{Name: "deptId", Type: models.TypeInt}).
		Criteria(models.CriteriaDef{Name: "deptFilter", SQL: "AND e.dept_id = :deptId"}).
		MaxPageSize(50)
	for _, a := range employeeAttributes() {
		b.Attribute(a)
	}
	return b
}

func employeesDefinition(t *testing.T, dialectName string) *models.QueryDefinition {
	t.Helper()
	def, err := employeesBuilder(dialectName).Build()
	require.NoError(t, err)
	return def
}

// plainEmployeesDefinition has no placeholders, so filters wrap the query.
func plainEmployeesDefinition(t *testing.T, dialectName string) *models.QueryDefinition {
	t.Helper()
	b := models.NewBuilder("employees_plain").
		SQL(plainEmployeesSQL).
		Dialect(dialectName).
		Param(models.ParamDef{Name: "active", Type: models.TypeBool, Default: true})
	for _, a := range employeeAttributes() {
		b.Attribute(a)
	}
	def, err := b.Build()
	require.NoError(t, err)
	return def
}

const aliasedEmployeesSQL = `SELECT e.emp_id, e.first_name, e.last_name, e.dept_id
FROM emp e
--only active rows
WHERE e.active = :active`

// aliasedEmployeesDefinition has no placeholders and alias-qualified columns.
func aliasedEmployeesDefinition(t *testing.T, dialectName string) *models.QueryDefinition {
	t.Helper()
	def, err := models.NewBuilder("employees_aliased").
		SQL(aliasedEmployeesSQL).
		Dialect(dialectName).
		Param(models.ParamDef{Name: "active", Type: models.TypeBool, Default: true}).
		Attribute(models.AttributeDef{Name: "id", Type: models.TypeInt, Column: "e.emp_id", Sortable: true}).
		Attribute(models.AttributeDef{Name: "firstName", Type: models.TypeString, Column: "e.first_name"}).
		Attribute(models.AttributeDef{Name: "lastName", Type: models.TypeString, Column: "e.last_name", Filterable: true}).
		Attribute(models.AttributeDef{Name: "deptId", Type: models.TypeInt, Column: "e.dept_id", Filterable: true, Sortable: true}).
		Attribute(models.AttributeDef{Name: "fullName", Type: models.TypeString, Virtual: true, Calculator: fullName, DependsOn: []string{"firstName", "lastName"}, Sortable: true, SortProperty: "e.last_name"}).
		Build()
	require.NoError(t, err)
	return def
}

func page(start, end int) *models.Page {
	return &models.Page{Start: start, End: end}
}

func rowIDs(rows []*models.Row) []int {
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.Value("id").(int)
	}
	return ids
}
