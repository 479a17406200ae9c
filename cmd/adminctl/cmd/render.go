package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/goutil"
	"github.com/spf13/cobra"

	"github.com/rawlogin/adminctl/pkg/api"
)

// checkResult turns a success=false envelope into an error carrying the
// server's message.
func checkResult[T any](result *api.Result[T]) error {
	if result.Success {
		return nil
	}
	if result.Message == "" {
		return errors.New("request was not successful")
	}
	return errors.New(result.Message)
}

// printMessage prints the server message of a successful call, or fallback.
func printMessage[T any](w io.Writer, result *api.Result[T], fallback string) {
	if result.Message != "" {
		fmt.Fprintln(w, result.Message)
		return
	}
	fmt.Fprintln(w, fallback)
}

func parseID(arg, what string) (int, error) {
	id, err := goutil.ToInt(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", what, arg)
	}
	return id, nil
}

func parseIDs(args []string, what string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := parseID(part, what)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// prompt reads one line from the command's input when value is empty.
func prompt(cmd *cobra.Command, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

func statusText(status *int) string {
	switch {
	case status == nil:
		return "-"
	case *status == 1:
		return "active"
	default:
		return "disabled"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printUsers(w io.Writer, users []api.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}
	fmt.Fprintf(w, "%-6s %-20s %-30s %-10s %s\n", "ID", "USERNAME", "EMAIL", "ROLE", "STATUS")
	for _, u := range users {
		fmt.Fprintf(w, "%-6d %-20s %-30s %-10s %s\n", u.ID, u.Username, orDash(u.Email), orDash(u.Role), statusText(u.Status))
	}
}

func printUser(w io.Writer, u api.User) {
	fmt.Fprintf(w, "ID:         %d\n", u.ID)
	fmt.Fprintf(w, "Username:   %s\n", u.Username)
	fmt.Fprintf(w, "Email:      %s\n", orDash(u.Email))
	fmt.Fprintf(w, "Role:       %s\n", orDash(u.Role))
	fmt.Fprintf(w, "Status:     %s\n", statusText(u.Status))
	if u.CreateTime != "" {
		fmt.Fprintf(w, "Created:    %s\n", u.CreateTime)
	}
	if u.LastLoginTime != "" {
		fmt.Fprintf(w, "Last login: %s\n", u.LastLoginTime)
	}
}

func printRoles(w io.Writer, roles []api.Role) {
	if len(roles) == 0 {
		fmt.Fprintln(w, "No roles found")
		return
	}
	fmt.Fprintf(w, "%-6s %-16s %-20s %-9s %s\n", "ID", "CODE", "NAME", "STATUS", "DESCRIPTION")
	for _, r := range roles {
		fmt.Fprintf(w, "%-6d %-16s %-20s %-9s %s\n", r.ID, r.Code, r.Name, statusText(r.Status), orDash(r.Description))
	}
}

func printRole(w io.Writer, r api.Role) {
	fmt.Fprintf(w, "ID:          %d\n", r.ID)
	fmt.Fprintf(w, "Code:        %s\n", r.Code)
	fmt.Fprintf(w, "Name:        %s\n", r.Name)
	fmt.Fprintf(w, "Description: %s\n", orDash(r.Description))
	fmt.Fprintf(w, "Status:      %s\n", statusText(r.Status))
	fmt.Fprintf(w, "Built-in:    %t\n", r.BuiltIn)
	codes := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		codes = append(codes, p.Code)
	}
	fmt.Fprintf(w, "Permissions: %s\n", orDash(strings.Join(codes, ", ")))
}

func printPermissions(w io.Writer, perms []api.Permission) {
	if len(perms) == 0 {
		fmt.Fprintln(w, "No permissions found")
		return
	}
	fmt.Fprintf(w, "%-20s %-10s %s\n", "CODE", "CATEGORY", "NAME")
	for _, p := range perms {
		name := p.DisplayName
		if name == "" {
			name = p.Name
		}
		fmt.Fprintf(w, "%-20s %-10s %s\n", p.Code, orDash(p.Category), orDash(name))
	}
}
