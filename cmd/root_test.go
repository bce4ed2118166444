package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protaige/outreach-cli/internal/config"
	"github.com/protaige/outreach-cli/internal/resilience"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"companies", "matrix", "probability", "contacts", "profiles", "log"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "outreach-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestMatrixCommand_Flags(t *testing.T) {
	flag := matrixCmd.Flags().Lookup("deadline")
	require.NotNil(t, flag, "matrix command should have --deadline flag")
	assert.Equal(t, "0s", flag.DefValue)
}

func TestProbabilityCommand_HasResetSubcommand(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range probabilityCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["reset"], "expected reset subcommand")
}

func TestContactsCommand_Flags(t *testing.T) {
	flag := contactsCmd.Flags().Lookup("rows")
	require.NotNil(t, flag, "contacts command should have --rows flag")
}

func TestProfilesCommand_Flags(t *testing.T) {
	flag := profilesCmd.Flags().Lookup("no-discovery")
	require.NotNil(t, flag, "profiles command should have --no-discovery flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestRetryConfigRetriesExtraction(t *testing.T) {
	cfg = &config.Config{}
	rc := retryConfig()

	require.NotNil(t, rc.ShouldRetry)
	assert.True(t, rc.ShouldRetry(&resilience.ExtractionError{Reason: "no JSON object found"}))
	assert.True(t, rc.ShouldRetry(&resilience.APIError{Provider: "openai", Status: 429}))
	assert.False(t, rc.ShouldRetry(&resilience.ValidationError{Reason: "missing LinkedIn URL"}))
}

func TestReportDetails(t *testing.T) {
	assert.Equal(t, "worked=3 skipped=1 failed=0", reportDetails(3, 1, 0))
}

func TestParseRows(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{name: "empty", input: "", want: nil},
		{name: "range", input: "5-8", want: []int{5, 6, 7, 8}},
		{name: "list", input: "3, 7,9", want: []int{3, 7, 9}},
		{name: "single", input: "12", want: []int{12}},
		{name: "reversed range", input: "8-5", wantErr: true},
		{name: "garbage", input: "a-b", wantErr: true},
		{name: "zero row", input: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRows(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
