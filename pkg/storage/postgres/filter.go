package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

type columnKind int

const (
	textColumn columnKind = iota
	boolColumn
	memberColumn
)

type column struct {
	name string
	kind columnKind
}

// tableSpec maps filter field names onto the columns of one table
type tableSpec struct {
	name    string
	columns map[string]column
}

var usersTable = tableSpec{
	name: "users",
	columns: map[string]column{
		models.UserFieldID:             {"id", textColumn},
		models.UserFieldEmail:          {"email", textColumn},
		models.UserFieldName:           {"name", textColumn},
		models.UserFieldRole:           {"role", textColumn},
		models.UserFieldOrganizationID: {"organization_id", textColumn},
		models.UserFieldIsActive:       {"is_active", boolColumn},
		models.UserFieldIsApproved:     {"is_approved", boolColumn},
	},
}

var projectsTable = tableSpec{
	name: "projects",
	columns: map[string]column{
		models.ProjectFieldID:             {"id", textColumn},
		models.ProjectFieldName:           {"name", textColumn},
		models.ProjectFieldDescription:    {"description", textColumn},
		models.ProjectFieldOwner:          {"owner", textColumn},
		models.ProjectFieldCreatedBy:      {"created_by", textColumn},
		models.ProjectFieldProjectLead:    {"project_lead", textColumn},
		models.ProjectFieldOrganizationID: {"organization_id", textColumn},
		models.ProjectFieldStatus:         {"status", textColumn},
		models.ProjectFieldMemberUser:     {"user_id", memberColumn},
	},
}

var tasksTable = tableSpec{
	name: "tasks",
	columns: map[string]column{
		models.TaskFieldID:          {"id", textColumn},
		models.TaskFieldTitle:       {"title", textColumn},
		models.TaskFieldDescription: {"description", textColumn},
		models.TaskFieldProject:     {"project_id", textColumn},
		models.TaskFieldAssignee:    {"assignee", textColumn},
		models.TaskFieldReporter:    {"reporter", textColumn},
		models.TaskFieldStatus:      {"status", textColumn},
		models.TaskFieldPriority:    {"priority", textColumn},
	},
}

// filterBuilder compiles a query.Cond into a WHERE clause with numbered placeholders
type filterBuilder struct {
	table tableSpec
	args  []interface{}
}

func newFilterBuilder(table tableSpec) *filterBuilder {
	return &filterBuilder{table: table}
}

func (b *filterBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// where compiles cond; the returned args are in placeholder order
func where(table tableSpec, cond query.Cond) (string, []interface{}, error) {
	b := newFilterBuilder(table)
	clause, err := b.build(cond)
	if err != nil {
		return "", nil, err
	}
	return clause, b.args, nil
}

func (b *filterBuilder) column(field string) (column, error) {
	col, ok := b.table.columns[field]
	if !ok {
		return column{}, fmt.Errorf("unknown filter field %q for %s", field, b.table.name)
	}
	return col, nil
}

func (b *filterBuilder) build(cond query.Cond) (string, error) {
	switch cond.Op {
	case query.OpAll:
		return "TRUE", nil
	case query.OpNone:
		return "FALSE", nil
	case query.OpEq:
		col, err := b.column(cond.Field)
		if err != nil {
			return "", err
		}
		switch col.kind {
		case boolColumn:
			v, err := strconv.ParseBool(cond.Value)
			if err != nil {
				return "", fmt.Errorf("invalid boolean for %s: %w", cond.Field, err)
			}
			return col.name + " = " + b.arg(v), nil
		case memberColumn:
			return b.memberExists("pm.user_id = " + b.arg(cond.Value)), nil
		default:
			return col.name + " = " + b.arg(cond.Value), nil
		}
	case query.OpIn:
		col, err := b.column(cond.Field)
		if err != nil {
			return "", err
		}
		if len(cond.Values) == 0 {
			return "FALSE", nil
		}
		switch col.kind {
		case boolColumn:
			return "", fmt.Errorf("set membership not supported on boolean field %s", cond.Field)
		case memberColumn:
			return b.memberExists("pm.user_id = ANY(" + b.arg(pq.Array(cond.Values)) + ")"), nil
		default:
			return col.name + " = ANY(" + b.arg(pq.Array(cond.Values)) + ")", nil
		}
	case query.OpSearch:
		pattern := b.arg("%" + escapeLike(cond.Value) + "%")
		parts := make([]string, 0, len(cond.Fields))
		for _, f := range cond.Fields {
			col, err := b.column(f)
			if err != nil {
				return "", err
			}
			if col.kind != textColumn {
				return "", fmt.Errorf("search not supported on field %s", f)
			}
			parts = append(parts, col.name+" ILIKE "+pattern)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case query.OpAnd, query.OpOr:
		sep := " AND "
		if cond.Op == query.OpOr {
			sep = " OR "
		}
		parts := make([]string, 0, len(cond.Children))
		for _, child := range cond.Children {
			part, err := b.build(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			if cond.Op == query.OpAnd {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	}
	return "", fmt.Errorf("unsupported filter operator %s", cond.Op)
}

func (b *filterBuilder) memberExists(predicate string) string {
	return "EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = " + b.table.name + ".id AND " + predicate + ")"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
