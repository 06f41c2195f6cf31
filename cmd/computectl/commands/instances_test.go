package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

func TestInstances_HasSubcommands(t *testing.T) {
	names := subcommandNames(Instances(&handlers.Globals{}))

	for _, want := range []string{"list", "run", "start", "stop", "reboot", "terminate"} {
		assert.True(t, names[want], "Expected %s subcommand", want)
	}
}

func TestRunInstances_RequiredFlags(t *testing.T) {
	cmd := runInstances(&handlers.Globals{})

	for _, name := range []string{"image", "type"} {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag)
		assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"], name)
	}
	assert.Equal(t, "1", cmd.Flags().Lookup("count").DefValue)
}

func TestChangeInstances_ActionFlags(t *testing.T) {
	g := &handlers.Globals{}

	tests := []struct {
		action string
		flag   string
	}{
		{handlers.ActionStop, "force"},
		{handlers.ActionStart, "wait"},
		{handlers.ActionTerminate, "wait"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			cmd := changeInstances(g, tt.action, "short")
			assert.NotNil(t, cmd.Flags().Lookup(tt.flag))
		})
	}

	reboot := changeInstances(g, handlers.ActionReboot, "Reboot instances")
	assert.Nil(t, reboot.Flags().Lookup("wait"))
	assert.Nil(t, reboot.Flags().Lookup("force"))
}

func TestChangeInstances_RequiresIDs(t *testing.T) {
	cmd := changeInstances(&handlers.Globals{}, handlers.ActionStart, "Start")
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestListInstances_Flags(t *testing.T) {
	cmd := listInstances(&handlers.Globals{})

	for _, name := range []string{"filter", "page-size", "max-pages", "resume"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
