// Package layerctl implements the command line tool for managing the
// layer registry: adapters, prompt overlays and profiles attached to
// base models.
package layerctl

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"orchd/internal/config"
	"orchd/internal/registry"
)

// Main is the entry point used by cmd/layerctl.
func Main() int {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "layerctl: %v\n", err)
		return 1
	}
	return 0
}

func defaultRegistryPath() string {
	if v := os.Getenv("ORCHD_REGISTRY"); v != "" {
		return v
	}
	return config.DefaultRegistryPath
}

// buildRootCmd constructs the Cobra command tree.
func buildRootCmd() *cobra.Command {
	var registryPath string

	root := &cobra.Command{
		Use:           "layerctl",
		Short:         "Manage model layers: adapters, prompt overlays, profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&registryPath, "registry", defaultRegistryPath(), "Path to the layer registry JSON file")

	open := func() (*registry.Registry, error) { return registry.Open(registryPath) }

	// list
	listCmd := &cobra.Command{Use: "list", Short: "List layers, optionally for one model", Example: "  layerctl list\n  layerctl list --model m-code"}
	listModel := listCmd.Flags().String("model", "", "Base model name (empty lists all)")
	listCmd.RunE = func(cmd *cobra.Command, args []string) error {
		reg, err := open()
		if err != nil {
			return err
		}
		snap, err := reg.Snapshot()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(snap.Models))
		for name := range snap.Models {
			if *listModel != "" && name != *listModel {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no layers")
			return nil
		}
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", name)
			for _, l := range snap.Models[name] {
				marker := " "
				if l.Active {
					marker = "*"
				}
				line := fmt.Sprintf("  %s %-20s %-8s %s", marker, l.ID, l.Kind, l.Description)
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(line, " "))
			}
		}
		return nil
	}

	// add
	addCmd := &cobra.Command{Use: "add", Short: "Add a layer to a model", Example: "  layerctl add --model m-code --id lora-go --kind adapter --adapter lora-go-v2 --activate"}
	addModel := addCmd.Flags().String("model", "", "Base model name (required)")
	addID := addCmd.Flags().String("id", "", "Layer id (required)")
	addKind := addCmd.Flags().String("kind", string(registry.KindAdapter), "Layer kind: adapter|prompt|profile")
	addDesc := addCmd.Flags().String("description", "", "Human readable description")
	addSize := addCmd.Flags().Float64("size-gb", 0, "Approximate VRAM cost in GB")
	addAdapter := addCmd.Flags().String("adapter", "", "Adapter reference passed to the daemon (adapter kind)")
	addPrompt := addCmd.Flags().String("prompt", "", "System prompt text (prompt/profile kind)")
	addPromptFile := addCmd.Flags().String("prompt-file", "", "Read system prompt from file")
	addActivate := addCmd.Flags().Bool("activate", false, "Make this the active layer")
	addOverwrite := addCmd.Flags().Bool("overwrite", false, "Replace an existing layer with the same id")
	addCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *addModel == "" || *addID == "" {
			return fmt.Errorf("--model and --id are required")
		}
		kind := registry.LayerKind(*addKind)
		if !registry.ValidKind(kind) {
			return fmt.Errorf("unknown kind %q", *addKind)
		}
		prompt, err := resolvePrompt(*addPrompt, *addPromptFile)
		if err != nil {
			return err
		}
		reg, err := open()
		if err != nil {
			return err
		}
		layer := registry.Layer{
			ID:           *addID,
			Kind:         kind,
			Description:  *addDesc,
			SizeGB:       *addSize,
			Adapter:      *addAdapter,
			SystemPrompt: prompt,
		}
		if err := reg.AddLayer(*addModel, layer, *addActivate, *addOverwrite); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added layer %s to %s\n", *addID, *addModel)
		return nil
	}

	// update
	updateCmd := &cobra.Command{Use: "update", Short: "Change fields of an existing layer", Example: "  layerctl update --model m-code --id lora-go --description \"go 1.22 tuned\""}
	updModel := updateCmd.Flags().String("model", "", "Base model name (required)")
	updID := updateCmd.Flags().String("id", "", "Layer id (required)")
	updNewID := updateCmd.Flags().String("new-id", "", "Rename the layer")
	updKind := updateCmd.Flags().String("kind", "", "Change kind: adapter|prompt|profile")
	updDesc := updateCmd.Flags().String("description", "", "Change description")
	updSize := updateCmd.Flags().Float64("size-gb", 0, "Change VRAM cost in GB")
	updAdapter := updateCmd.Flags().String("adapter", "", "Change adapter reference")
	updPrompt := updateCmd.Flags().String("prompt", "", "Change system prompt text")
	updPromptFile := updateCmd.Flags().String("prompt-file", "", "Read new system prompt from file")
	updateCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *updModel == "" || *updID == "" {
			return fmt.Errorf("--model and --id are required")
		}
		var upd registry.LayerUpdate
		if cmd.Flags().Changed("new-id") {
			upd.NewID = updNewID
		}
		if cmd.Flags().Changed("kind") {
			kind := registry.LayerKind(*updKind)
			if !registry.ValidKind(kind) {
				return fmt.Errorf("unknown kind %q", *updKind)
			}
			upd.Kind = &kind
		}
		if cmd.Flags().Changed("description") {
			upd.Description = updDesc
		}
		if cmd.Flags().Changed("size-gb") {
			upd.SizeGB = updSize
		}
		if cmd.Flags().Changed("adapter") {
			upd.Adapter = updAdapter
		}
		if cmd.Flags().Changed("prompt") || cmd.Flags().Changed("prompt-file") {
			prompt, err := resolvePrompt(*updPrompt, *updPromptFile)
			if err != nil {
				return err
			}
			upd.SystemPrompt = &prompt
		}
		reg, err := open()
		if err != nil {
			return err
		}
		if err := reg.UpdateLayer(*updModel, *updID, upd); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated layer %s on %s\n", *updID, *updModel)
		return nil
	}

	// delete
	deleteCmd := &cobra.Command{Use: "delete", Short: "Remove a layer", Example: "  layerctl delete --model m-code --id lora-go"}
	delModel := deleteCmd.Flags().String("model", "", "Base model name (required)")
	delID := deleteCmd.Flags().String("id", "", "Layer id (required)")
	deleteCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *delModel == "" || *delID == "" {
			return fmt.Errorf("--model and --id are required")
		}
		reg, err := open()
		if err != nil {
			return err
		}
		if err := reg.RemoveLayer(*delModel, *delID); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted layer %s from %s\n", *delID, *delModel)
		return nil
	}

	// activate
	activateCmd := &cobra.Command{Use: "activate", Short: "Select the active layer for a model", Example: "  layerctl activate --model m-code --id lora-go\n  layerctl activate --model m-code --clear"}
	actModel := activateCmd.Flags().String("model", "", "Base model name (required)")
	actID := activateCmd.Flags().String("id", "", "Layer id to activate")
	actClear := activateCmd.Flags().Bool("clear", false, "Clear the active layer")
	activateCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *actModel == "" {
			return fmt.Errorf("--model is required")
		}
		if *actID == "" && !*actClear {
			return fmt.Errorf("--id or --clear is required")
		}
		id := *actID
		if *actClear {
			id = ""
		}
		reg, err := open()
		if err != nil {
			return err
		}
		if err := reg.SetActiveLayer(*actModel, id); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		if id == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "cleared active layer on %s\n", *actModel)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "activated layer %s on %s\n", id, *actModel)
		}
		return nil
	}

	// dedupe
	dedupeCmd := &cobra.Command{Use: "dedupe", Short: "Remove duplicate layer ids, keeping the first occurrence", Example: "  layerctl dedupe\n  layerctl dedupe --model m-code"}
	dedupeModel := dedupeCmd.Flags().String("model", "", "Base model name (empty dedupes all)")
	dedupeCmd.RunE = func(cmd *cobra.Command, args []string) error {
		reg, err := open()
		if err != nil {
			return err
		}
		removed, err := reg.Dedupe(*dedupeModel)
		if err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		if len(removed) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no duplicates")
			return nil
		}
		names := make([]string, 0, len(removed))
		for name := range removed {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d duplicate(s) from %s\n", removed[name], name)
		}
		return nil
	}

	root.AddCommand(listCmd, addCmd, updateCmd, deleteCmd, activateCmd, dedupeCmd)
	return root
}

// resolvePrompt returns the prompt text, preferring the file when given.
func resolvePrompt(inline, file string) (string, error) {
	if file == "" {
		return inline, nil
	}
	if inline != "" {
		return "", fmt.Errorf("--prompt and --prompt-file are mutually exclusive")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	return string(b), nil
}
