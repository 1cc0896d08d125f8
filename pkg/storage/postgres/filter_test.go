package postgres

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

func TestWhere(t *testing.T) {
	tests := []struct {
		name      string
		table     tableSpec
		cond      query.Cond
		wantSQL   string
		wantArgs  []interface{}
		wantError bool
	}{
		{
			name:    "all",
			table:   projectsTable,
			cond:    query.All(),
			wantSQL: "TRUE",
		},
		{
			name:    "none",
			table:   tasksTable,
			cond:    query.None(),
			wantSQL: "FALSE",
		},
		{
			name:     "project lead visibility",
			table:    projectsTable,
			cond:     query.Or(query.Eq(models.ProjectFieldOwner, "u1"), query.Eq(models.ProjectFieldMemberUser, "u1")),
			wantSQL:  "(owner = $1 OR EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = projects.id AND pm.user_id = $2))",
			wantArgs: []interface{}{"u1", "u1"},
		},
		{
			name:     "task project set",
			table:    tasksTable,
			cond:     query.In(models.TaskFieldProject, []string{"p1", "p2"}),
			wantSQL:  "project_id = ANY($1)",
			wantArgs: []interface{}{pq.Array([]string{"p1", "p2"})},
		},
		{
			name:     "boolean column",
			table:    usersTable,
			cond:     query.And(query.Eq(models.UserFieldIsActive, "true"), query.Eq(models.UserFieldOrganizationID, "org")),
			wantSQL:  "(is_active = $1 AND organization_id = $2)",
			wantArgs: []interface{}{true, "org"},
		},
		{
			name:     "search escapes wildcards",
			table:    tasksTable,
			cond:     query.Search("50%_off", models.TaskFieldTitle, models.TaskFieldDescription),
			wantSQL:  "(title ILIKE $1 OR description ILIKE $1)",
			wantArgs: []interface{}{`%50\%\_off%`},
		},
		{
			name:      "unknown field",
			table:     tasksTable,
			cond:      query.Eq("members.user", "u1"),
			wantError: true,
		},
		{
			name:      "bad boolean",
			table:     usersTable,
			cond:      query.Eq(models.UserFieldIsApproved, "maybe"),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := where(tt.table, tt.cond)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
