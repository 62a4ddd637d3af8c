package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandTreeRegistersAllSubcommands(t *testing.T) {
	scan := defineScanCommand()
	require.Equal(t, "scan", scan.Name())

	convert := defineConvertCommand()
	require.Equal(t, "convert", convert.Name())

	reconstruct := defineReconstructCommand()
	require.Equal(t, "reconstruct", reconstruct.Name())

	extract := defineExtractCommand()
	require.Equal(t, "extract", extract.Name())

	initCmd := defineInitCommand()
	require.Equal(t, "init", initCmd.Name())

	merge := defineMergeCommand()
	require.Equal(t, "merge", merge.Name())
}
