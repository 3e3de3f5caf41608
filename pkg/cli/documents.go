package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"

	"github.com/nimburion/docmanager/pkg/app"
	"github.com/nimburion/docmanager/pkg/eventbus"
	"github.com/nimburion/docmanager/pkg/manager"
	"github.com/nimburion/docmanager/pkg/repository/document"
)

// WriteResponse reports a save or remove and the event it raised.
type WriteResponse struct {
	Collection string          `json:"collection"`
	IDs        []string        `json:"ids"`
	Removed    *bool           `json:"removed,omitempty"`
	Event      *eventbus.Event `json:"event,omitempty"`
}

func newSaveCommand(flags *rootFlags) *cobra.Command {
	var event string
	cmd := &cobra.Command{
		Use:   "save <collection> <file>",
		Short: "Save the documents of a YAML or JSON list and announce them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readDocuments(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				m, err := a.Collection(args[0])
				if err != nil {
					return err
				}
				if err := m.Save(ctx, docs...); err != nil {
					return err
				}
				resp := WriteResponse{Collection: args[0], IDs: hexIDs(m.Identifiers(docs...))}
				if resp.Event, err = announce(ctx, m, event, resp.IDs); err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), flags.format(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&event, "event", "saved", "event name raised after the save; empty raises none")
	return cmd
}

func newRemoveCommand(flags *rootFlags) *cobra.Command {
	var event string
	cmd := &cobra.Command{
		Use:   "remove <collection> <id>...",
		Short: "Remove documents by identifier and announce them",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				m, err := a.Collection(args[0])
				if err != nil {
					return err
				}
				docs := make([]*document.Record, 0, len(args)-1)
				for _, id := range args[1:] {
					doc, err := m.Find(ctx, id)
					if err != nil {
						return err
					}
					docs = append(docs, doc)
				}
				removed, err := m.Remove(ctx, docs...)
				if err != nil {
					return err
				}
				resp := WriteResponse{Collection: args[0], IDs: hexIDs(m.Identifiers(docs...)), Removed: &removed}
				if resp.Event, err = announce(ctx, m, event, resp.IDs); err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), flags.format(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&event, "event", "removed", "event name raised after the removal; empty raises none")
	return cmd
}

func newDispatchCommand(flags *rootFlags) *cobra.Command {
	var rawArgs []string
	cmd := &cobra.Command{
		Use:   "dispatch <collection> <event>",
		Short: "Raise a collection event on the configured event bus",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventArgs, err := parseEventArgs(rawArgs)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				m, err := a.Collection(args[0])
				if err != nil {
					return err
				}
				event, err := m.Dispatch(ctx, m.EventName(args[1]), eventArgs)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), flags.format(), event)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&rawArgs, "arg", "a", nil, "event argument as key=value (repeatable)")
	return cmd
}

// announce dispatches name under the collection key with the affected ids
// as data. An empty name dispatches nothing.
func announce(ctx context.Context, m *manager.Manager[*document.Record], name string, ids []string) (*eventbus.Event, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	return m.Dispatch(ctx, m.EventName(name), eventbus.Arguments{eventbus.ArgData: ids})
}

func parseEventArgs(raw []string) (eventbus.Arguments, error) {
	args := make(eventbus.Arguments, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("event argument %q must look like key=value", kv)
		}
		args[strings.TrimSpace(key)] = value
	}
	return args, nil
}

// readDocuments reads a YAML (or JSON) list of documents. A 24 character
// hex _id becomes an ObjectID; documents without one get a new id on save.
func readDocuments(path string) ([]*document.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	var fields []map[string]interface{}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse documents %s: %w", path, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s holds no documents", path)
	}
	docs := make([]*document.Record, 0, len(fields))
	for _, f := range fields {
		if hex, ok := f["_id"].(string); ok {
			oid, err := primitive.ObjectIDFromHex(hex)
			if err != nil {
				return nil, fmt.Errorf("document _id %q: %w", hex, err)
			}
			f["_id"] = oid
		}
		docs = append(docs, document.NewRecord(f))
	}
	return docs, nil
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
