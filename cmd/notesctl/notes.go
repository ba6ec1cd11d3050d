package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/service"
)

func newNotesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage a user's notes",
	}
	cmd.AddCommand(newNotesListCmd(a), newNotesAddCmd(a), newNotesDeleteCmd(a), newNotesCountCmd(a))
	return cmd
}

func newNotesListCmd(a *app) *cobra.Command {
	var (
		username string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.lookupUser(cmd, username)
			if err != nil {
				return err
			}
			notes, err := a.notes.List(cmd.Context(), user.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(notes)
			}
			for _, n := range notes {
				fmt.Fprintf(out, "%s\t%s\n", n.Slug, n.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "owner of the notes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newNotesAddCmd(a *app) *cobra.Command {
	var (
		username string
		in       service.NoteInput
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a note for a user",
		Long:  `Add a note. Without --slug the address is built from the title.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.lookupUser(cmd, username)
			if err != nil {
				return err
			}
			note, err := a.notes.Create(cmd.Context(), user.ID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note created: %s\n", note.Slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "owner of the note")
	cmd.Flags().StringVar(&in.Title, "title", "", "note title")
	cmd.Flags().StringVar(&in.Text, "text", "", "note body (Markdown)")
	cmd.Flags().StringVar(&in.Slug, "slug", "", "note address")
	return cmd
}

func newNotesDeleteCmd(a *app) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "delete [slug]",
		Short: "Delete one of a user's notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.lookupUser(cmd, username)
			if err != nil {
				return err
			}
			if err := a.notes.Delete(cmd.Context(), user.ID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "owner of the note")
	return cmd
}

func newNotesCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of notes across all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.db.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
