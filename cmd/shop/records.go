package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lukelai18/ECommerce-API/internal/client"
	"github.com/lukelai18/ECommerce-API/internal/resource"
)

var listCmd = &cobra.Command{
	Use:   "list <collection> [field=value ...]",
	Short: "List the records of a collection, optionally filtered by exact field values",
	Example: `  shop list products
  shop list orders status=shipped user_id=3`,
	GroupID: "records",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, err := checkCollection(args[0])
		if err != nil {
			return err
		}
		filter := url.Values{}
		for _, a := range args[1:] {
			k, v, ok := strings.Cut(a, "=")
			if !ok || k == "" {
				return fmt.Errorf("invalid filter %q (want field=value)", a)
			}
			filter.Add(k, v)
		}
		objs, err := shopClient.List(cmd.Context(), collection, filter)
		if err != nil {
			return err
		}
		return printRecords(cmd.OutOrStdout(), collection, objs)
	},
}

var getCmd = &cobra.Command{
	Use:     "get <collection> <id>",
	Short:   "Show a single record",
	GroupID: "records",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, id, err := collectionAndID(args)
		if err != nil {
			return err
		}
		obj, err := shopClient.Get(cmd.Context(), collection, id)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), obj)
	},
}

var createCmd = &cobra.Command{
	Use:   "create <collection> [field=value ...]",
	Short: "Create a record",
	Long: `Create a record from field=value pairs, a JSON document (--data) or a
JSON file (--file, "-" for stdin). Values that parse as JSON (numbers,
booleans, arrays) are sent as such; anything else is sent as a string.`,
	Example: `  shop create users username=alice email=alice@example.com
  shop create orders user_id=1 'product_ids=[1,2]'
  shop create products --data '{"name":"Lamp","price":20,"stock":3}'`,
	GroupID: "records",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, err := checkCollection(args[0])
		if err != nil {
			return err
		}
		body, err := requestBody(cmd, args[1:])
		if err != nil {
			return err
		}
		obj, err := shopClient.Create(cmd.Context(), collection, body)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), obj)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <collection> <id> [field=value ...]",
	Short: "Change some fields of a record",
	Example: `  shop update orders 4 status=shipped
  shop update products 2 price=17.5 is_available=false`,
	GroupID: "records",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, id, err := collectionAndID(args[:2])
		if err != nil {
			return err
		}
		body, err := requestBody(cmd, args[2:])
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return fmt.Errorf("nothing to update")
		}
		obj, err := shopClient.Update(cmd.Context(), collection, id, body)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), obj)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <collection> <id>",
	Short:   "Delete a record",
	GroupID: "records",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, id, err := collectionAndID(args)
		if err != nil {
			return err
		}
		if err := shopClient.Delete(cmd.Context(), collection, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %d\n", singular(collection), id)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{createCmd, updateCmd} {
		cmd.Flags().String("data", "", "JSON object with the record fields")
		cmd.Flags().String("file", "", `read the JSON object from a file ("-" for stdin)`)
	}
}

func checkCollection(name string) (string, error) {
	if !slices.Contains(resource.Collections, name) {
		return "", fmt.Errorf("unknown collection %q (one of %s)", name, strings.Join(resource.Collections, ", "))
	}
	return name, nil
}

func collectionAndID(args []string) (string, int64, error) {
	collection, err := checkCollection(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid id %q: must be an integer", args[1])
	}
	return collection, id, nil
}

// requestBody merges --data or --file with field=value arguments; the
// arguments win.
func requestBody(cmd *cobra.Command, assignments []string) (client.Object, error) {
	data, _ := cmd.Flags().GetString("data")
	file, _ := cmd.Flags().GetString("file")
	if data != "" && file != "" {
		return nil, fmt.Errorf("--data and --file are mutually exclusive")
	}

	body := client.Object{}
	switch {
	case data != "":
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			return nil, fmt.Errorf("parsing --data: %w", err)
		}
	case file != "":
		raw, err := readInput(cmd.InOrStdin(), file)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
	}

	fields, err := parseAssignments(assignments)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		body[k] = v
	}
	return body, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}

// parseAssignments turns "field=value" arguments into an object. A value that
// is valid JSON keeps its JSON type.
func parseAssignments(args []string) (client.Object, error) {
	obj := client.Object{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q (want field=value)", a)
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			obj[k] = parsed
		} else {
			obj[k] = v
		}
	}
	return obj, nil
}
