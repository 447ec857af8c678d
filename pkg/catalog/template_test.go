package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

func TestTemplateCalculator(t *testing.T) {
	row := models.NewRow([]string{"firstName", "lastName", "title", "label"})
	require.NoError(t, row.Set("firstName", "Ann"))
	require.NoError(t, row.Set("lastName", "adams"))

	tests := []struct {
		name string
		text string
		want any
	}{
		{"fields", "{{.firstName}} {{.lastName}}", "Ann adams"},
		{"funcs", "{{upper .lastName}}, {{initial .firstName}}.", "ADAMS, A."},
		{"nil renders empty", "{{.firstName}} {{.title}}", "Ann"},
		{"blank is nil", "{{.title}}", nil},
		{"conditional", "{{if .title}}{{.title}} {{end}}{{.firstName}}", "Ann"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := templateCalculator("label", tt.text)
			require.NoError(t, err)
			got, err := calc(row, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateCalculator_Errors(t *testing.T) {
	_, err := templateCalculator("label", "{{.firstName")
	require.Error(t, err)

	calc, err := templateCalculator("label", "{{.middleName}}")
	require.NoError(t, err)
	_, err = calc(models.NewRow([]string{"firstName"}), nil)
	assert.Error(t, err)
}
