package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/fabricworks/fabric/gen/providers/remotetask"
	"github.com/spf13/cobra"
)

func voiceClient() (*remotetask.Client, error) {
	endpoint := os.Getenv("TASK_SERVICE_URL")
	if endpoint == "" {
		return nil, fmt.Errorf("TASK_SERVICE_URL is not set")
	}
	return remotetask.NewClient(endpoint, os.Getenv("TASK_SERVICE_TOKEN"),
		remotetask.WithLogger(newLogger())), nil
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Manage cloned voices on the task service",
}

var voicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available voices, emotions, and languages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := voiceClient()
		if err != nil {
			return err
		}
		catalog, err := client.ListVoices(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", boldStyle.Sprint("Voices:"), strings.Join(catalog.Voices, ", "))
		if len(catalog.Emotions) > 0 {
			fmt.Printf("%s %s\n", boldStyle.Sprint("Emotions:"), strings.Join(catalog.Emotions, ", "))
		}
		if len(catalog.Languages) > 0 {
			fmt.Printf("%s %s\n", boldStyle.Sprint("Languages:"), strings.Join(catalog.Languages, ", "))
		}
		return nil
	},
}

var voicesCloneCmd = &cobra.Command{
	Use:   "clone [audio file]",
	Short: "Clone a voice from an audio sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := voiceClient()
		if err != nil {
			return err
		}
		sample, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read audio sample: %w", err)
		}
		speakerID, err := client.CloneVoice(cmd.Context(), base64.StdEncoding.EncodeToString(sample))
		if err != nil {
			return err
		}
		fmt.Printf("%s speaker id: %s\n", successStyle.Sprint("✔"), speakerID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(voicesCmd)
	voicesCmd.AddCommand(voicesListCmd)
	voicesCmd.AddCommand(voicesCloneCmd)
}
