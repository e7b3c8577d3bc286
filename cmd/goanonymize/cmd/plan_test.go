package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCommandStructure(t *testing.T) {
	assert.NotNil(t, planCmd)
	assert.Equal(t, "plan", planCmd.Use)
	assert.NotEmpty(t, planCmd.Short)
	assert.Contains(t, planCmd.Long, "Example:")
	assert.NotNil(t, planCmd.RunE)

	assert.NotNil(t, planCmd.Flags().Lookup("model"))
	assert.NotNil(t, planCmd.Flags().Lookup("exclude-model"))
}

func runPlanWith(t *testing.T, models, excludes []string) (string, error) {
	t.Helper()
	origModels, origExcludes := planModels, planExcludes
	planModels, planExcludes = models, excludes
	t.Cleanup(func() { planModels, planExcludes = origModels, origExcludes })

	var buf bytes.Buffer
	planCmd.SetOut(&buf)
	t.Cleanup(func() { planCmd.SetOut(nil) })

	err := runPlan(planCmd, nil)
	return buf.String(), err
}

func TestRunPlan(t *testing.T) {
	useTestRegistry(t)
	useConfigFile(t, testConfig)

	out, err := runPlanWith(t, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "Environment: production (restricted: true)")
	assert.Contains(t, out, "Chunk size:  500")
	assert.Contains(t, out, "* priority model")

	orderIdx := strings.Index(out, "Order*")
	userIdx := strings.Index(out, "User")
	require.NotEqual(t, -1, orderIdx)
	require.NotEqual(t, -1, userIdx)
	assert.Less(t, orderIdx, userIdx, "priority models are listed first")

	assert.Contains(t, out, "address(has_one addresses), items(has_many order_items)")
	assert.Contains(t, out, "`status` = ?")
	assert.Contains(t, out, "deleted_at IS NULL")
}

func TestRunPlan_Exclude(t *testing.T) {
	useTestRegistry(t)
	useConfigFile(t, testConfig)

	out, err := runPlanWith(t, nil, []string{"Order"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Order")
	assert.NotContains(t, out, "priority model")
	assert.Contains(t, out, "User")
}

func TestRunPlan_EverythingExcluded(t *testing.T) {
	useTestRegistry(t)
	useConfigFile(t, testConfig)

	out, err := runPlanWith(t, []string{"User"}, []string{"User"})
	require.NoError(t, err)
	assert.Contains(t, out, "No models planned.")
}

func TestRunPlan_UnknownModel(t *testing.T) {
	useTestRegistry(t)
	useConfigFile(t, testConfig)

	_, err := runPlanWith(t, []string{"Ghost"}, nil)
	assert.ErrorContains(t, err, "Ghost")
}

func TestRunPlan_MissingConfig(t *testing.T) {
	useTestRegistry(t)
	original := cfgFile
	cfgFile = "nonexistent-config.yaml"
	defer func() { cfgFile = original }()

	_, err := runPlanWith(t, nil, nil)
	assert.ErrorContains(t, err, "failed to load config")
}
