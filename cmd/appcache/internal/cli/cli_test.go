package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

// TestNoFlagConflicts verifies that all subcommands can be initialized
// without flag shorthand conflicts (e.g. -v for both --verbosity and
// --verbose).
func TestNoFlagConflicts(t *testing.T) {
	root := RootCmd()
	if root == nil {
		t.Fatal("RootCmd() returned nil")
	}

	subcommands := root.Commands()
	if len(subcommands) == 0 {
		t.Fatal("expected at least one subcommand")
	}

	for _, cmd := range subcommands {
		t.Run(cmd.Name(), func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("flag conflict in %q command: %v", cmd.Name(), r)
				}
			}()

			// Forces the merge of persistent and local flags.
			_ = cmd.Flags()
			_ = cmd.InheritedFlags()
		})
	}
}

// TestGlobalFlags verifies the persistent flags on the root command.
func TestGlobalFlags(t *testing.T) {
	root := RootCmd()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"verbosity", "v", "1"},
		{"log-format", "", "text"},
		{"dir", "C", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := root.PersistentFlags().Lookup(tt.name)
			if f == nil {
				t.Fatalf("expected persistent %q flag on root command", tt.name)
			}
			if f.Shorthand != tt.shorthand {
				t.Errorf("shorthand = %q, want %q", f.Shorthand, tt.shorthand)
			}
			if f.DefValue != tt.def {
				t.Errorf("default = %q, want %q", f.DefValue, tt.def)
			}
		})
	}
}

// TestSubcommandsExist verifies expected subcommands are registered.
func TestSubcommandsExist(t *testing.T) {
	root := RootCmd()

	for _, name := range []string{"version", "build", "offline", "sync", "status", "watch"} {
		if findCommand(root, name) == nil {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

// TestVerboseFlagNoShorthand verifies that subcommand --verbose flags
// don't have a -v shorthand (which would conflict with root's -v).
func TestVerboseFlagNoShorthand(t *testing.T) {
	root := RootCmd()

	for _, cmdName := range []string{"build", "offline", "sync", "status", "watch"} {
		t.Run(cmdName, func(t *testing.T) {
			cmd := findCommand(root, cmdName)
			if cmd == nil {
				t.Fatalf("command %q not found", cmdName)
			}

			verboseFlag := cmd.Flags().Lookup("verbose")
			if verboseFlag == nil {
				t.Fatalf("command %q has no verbose flag", cmdName)
			}
			if verboseFlag.Shorthand != "" {
				t.Errorf("command %q verbose flag should not have shorthand, got %q",
					cmdName, verboseFlag.Shorthand)
			}
		})
	}
}

func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
