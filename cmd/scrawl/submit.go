package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mkowalski/scrawl/internal/queue"
	"github.com/mkowalski/scrawl/internal/service"
	"github.com/mkowalski/scrawl/internal/ui"
)

var (
	submitTitle    string
	submitBody     string
	submitCategory string
	submitLat      string
	submitLng      string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a story to the shared feed",
	Long: `Submit a story to the shared feed.

If the device is online the story goes straight to the remote store and the
remote id is printed. If offline (or the remote write fails) the story is
queued durably on this device and a provisional pending id is printed; the
story syncs automatically when connectivity returns.

With no flags, an interactive form collects the story fields.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		draft, err := collectDraft()
		if err != nil {
			return err
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		handle, err := a.service.SubmitWrite(cmd.Context(), draft)
		if err != nil {
			return err
		}

		switch handle.Kind {
		case service.HandleRemote:
			fmt.Printf("%s Published: %s\n", ui.RenderSuccess("✓"), handle.ID)
		case service.HandlePending:
			fmt.Printf("%s Queued offline: %s\n", ui.RenderWarn("⏳"), handle.ID)
			fmt.Println(ui.RenderMuted("The story will sync when connectivity returns."))
		}
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitTitle, "title", "t", "", "story title")
	submitCmd.Flags().StringVarP(&submitBody, "body", "b", "", "story body")
	submitCmd.Flags().StringVarP(&submitCategory, "category", "c", "", "story category")
	submitCmd.Flags().StringVar(&submitLat, "lat", "", "latitude tag")
	submitCmd.Flags().StringVar(&submitLng, "lng", "", "longitude tag")
	rootCmd.AddCommand(submitCmd)
}

// collectDraft builds the draft from flags, falling back to an interactive
// form when title and body are absent.
func collectDraft() (queue.StoryDraft, error) {
	if submitTitle == "" && submitBody == "" {
		return promptDraft()
	}
	if submitTitle == "" {
		return queue.StoryDraft{}, fmt.Errorf("--title is required when --body is given")
	}

	draft := queue.StoryDraft{
		Title:    submitTitle,
		Body:     submitBody,
		Category: submitCategory,
	}
	if submitLat != "" || submitLng != "" {
		loc, err := parseLocation(submitLat, submitLng)
		if err != nil {
			return queue.StoryDraft{}, err
		}
		draft.Location = loc
	}
	return draft, nil
}

// promptDraft runs the interactive submission form.
func promptDraft() (queue.StoryDraft, error) {
	var draft queue.StoryDraft

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("title cannot be empty")
					}
					return nil
				}).
				Value(&draft.Title),
			huh.NewText().
				Title("Story").
				Value(&draft.Body),
			huh.NewInput().
				Title("Category").
				Placeholder("optional").
				Value(&draft.Category),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Submission cancelled\n")
		return queue.StoryDraft{}, err
	}
	return draft, nil
}

// parseLocation validates the lat/lng pair. Both must be given together.
func parseLocation(lat, lng string) (*queue.GeoPoint, error) {
	if lat == "" || lng == "" {
		return nil, fmt.Errorf("--lat and --lng must be given together")
	}
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	lngF, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", lng, err)
	}
	return &queue.GeoPoint{Latitude: latF, Longitude: lngF}, nil
}
