package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"rbacview/internal/pages"
	"rbacview/internal/resource"
	"rbacview/internal/restclient"
	"rbacview/internal/table"
)

func newGetCmd(a *app) *cobra.Command {
	var (
		filter   string
		sorts    []string
		show     []string
		page     int
		pageSize int
		grid     bool
	)
	cmd := &cobra.Command{
		Use:   "get KIND",
		Short: "List records of a kind",
		Long:  "List records of a kind. --sort takes column IDs, prefixed with '-' for descending order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hooks(args[0])
			if err != nil {
				return err
			}
			p, err := pages.For(h.Kind())
			if err != nil {
				return err
			}
			items, err := h.List(cmd.Context())
			if err != nil {
				return err
			}

			t := p.NewTable(table.WithPageSize(pageSize))
			t.SetFilter(filter)
			if err := applySort(t, sorts); err != nil {
				return err
			}
			for _, c := range show {
				t.SetColumnVisible(c, true)
			}
			if grid {
				t.SetView(table.GridView)
			}
			t.SetPage(page - 1)
			return table.WriteText(cmd.OutOrStdout(), t.Render(items, false))
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive substring filter")
	cmd.Flags().StringSliceVar(&sorts, "sort", nil, "sort columns, e.g. namespace,-age")
	cmd.Flags().StringSliceVar(&show, "show", nil, "hidden columns to show")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", table.DefaultPageSize, "rows per page")
	cmd.Flags().BoolVar(&grid, "grid", false, "render one block per record")
	return cmd
}

func applySort(t *table.Table[pages.Record], sorts []string) error {
	for i, s := range sorts {
		col := strings.TrimPrefix(s, "-")
		if !t.ToggleSort(col, i > 0) {
			return fmt.Errorf("cannot sort by %q", col)
		}
		if strings.HasPrefix(s, "-") {
			t.ToggleSort(col, true)
		}
	}
	return nil
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe KIND [NAMESPACE/]NAME",
		Short: "Print one record as YAML",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hooks(args[0])
			if err != nil {
				return err
			}
			target, err := resource.ParseTarget(args[1])
			if err != nil {
				return err
			}

			var obj *unstructured.Unstructured
			if h.CanGet() {
				if obj, err = h.Get(cmd.Context(), target); err != nil {
					return err
				}
			} else {
				items, err := h.List(cmd.Context())
				if err != nil {
					return err
				}
				for i := range items {
					if resource.TargetOf(items[i]) == target {
						obj = &items[i]
						break
					}
				}
				if obj == nil {
					return fmt.Errorf("%s %s not found", h.Kind().Singular(), target)
				}
			}

			out, err := resource.ManifestYAML(obj)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
}

// newCreateCmd builds both create and apply; apply replaces an existing
// record instead of creating one.
func newCreateCmd(a *app, use, short string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   use + " -f FILE [KIND]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readManifest(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			obj, err := resource.ParseManifest(data)
			if err != nil {
				return err
			}

			kindArg := obj.GetKind()
			if len(args) == 1 {
				kindArg = args[0]
			}
			if kindArg == "" {
				return fmt.Errorf("%w: kind is required", resource.ErrInvalidManifest)
			}
			h, err := a.hooks(kindArg)
			if err != nil {
				return err
			}

			verb := "created"
			if use == "apply" {
				err = h.Update(cmd.Context(), obj)
				verb = "updated"
			} else {
				err = h.Create(cmd.Context(), obj)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", h.Kind().Singular(), resource.TargetOf(*obj), verb)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "filename", "f", "", "manifest file, - for stdin")
	_ = cmd.MarkFlagRequired("filename")
	return cmd
}

func readManifest(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KIND [NAMESPACE/]NAME...",
		Short: "Delete one or more records",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hooks(args[0])
			if err != nil {
				return err
			}
			targets := make([]resource.Target, 0, len(args)-1)
			for _, arg := range args[1:] {
				t, err := resource.ParseTarget(arg)
				if err != nil {
					return err
				}
				targets = append(targets, t)
			}
			if err := h.Delete(cmd.Context(), targets...); err != nil {
				return err
			}
			for _, t := range targets {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s deleted\n", h.Kind().Singular(), t)
			}
			return nil
		},
	}
}

func newCanICmd(a *app) *cobra.Command {
	var (
		namespace string
		allNs     bool
		group     string
		as        string
		asGroups  []string
	)
	cmd := &cobra.Command{
		Use:   "can-i VERB RESOURCE [NAME]",
		Short: "Check whether an action is allowed",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.factory()
			if err != nil {
				return err
			}
			req := restclient.AccessReviewRequest{
				Verb:     args[0],
				Resource: args[1],
				Group:    group,
				User:     as,
				Groups:   asGroups,
			}
			if len(args) == 3 {
				req.Name = args[2]
			}
			if !allNs {
				req.Namespace = &namespace
			}

			res, err := f.Client().CanI(cmd.Context(), req)
			if err != nil {
				return err
			}
			answer := "no"
			if res.Allowed {
				answer = "yes"
			}
			if res.Reason != "" {
				answer += " - " + res.Reason
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "namespace to check in")
	cmd.Flags().BoolVarP(&allNs, "all-namespaces", "A", false, "check across all namespaces")
	cmd.Flags().StringVar(&group, "group", "", "API group of the resource")
	cmd.Flags().StringVar(&as, "as", "", "user to check on behalf of")
	cmd.Flags().StringSliceVar(&asGroups, "as-group", nil, "groups to check on behalf of")
	return cmd
}
