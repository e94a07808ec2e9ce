package cmd

import "testing"

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"server", "redis", "minio", "reset"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
