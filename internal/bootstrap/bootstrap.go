// Package bootstrap implements C8: on first run (and safely on every run
// thereafter), it seeds the baseline permission set and the root group
// named in spec.md §6.3.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/storage"
)

// baselinePermissions mirrors original_source/src/cli/mod.rs's
// init_defaults, with the "cauth:" prefix dropped: the instance-scoped
// matcher (domain.Matches) requires every route's required permission
// (spec.md §6.2, e.g. "users:delete") to share a literal prefix with what's
// granted, and the route table's names carry no such prefix. See DESIGN.md.
var baselinePermissions = []domain.Permission{
	{Name: "permissions:get", Description: "permission to retrieve the permission list"},
	{Name: "permissions:post", Description: "permission to create a new permission"},
	{Name: "permissions:delete", Description: "permission to delete a permission"},
	{Name: "groups:get", Description: "permission to retrieve the group list"},
	{Name: "groups:post", Description: "permission to create a new group"},
	{Name: "groups:delete", Description: "permission to delete a group"},
	{Name: "groups:update", Description: "permission to grant/revoke permissions to a group"},
	{Name: "users:update", Description: "permission to grant/revoke groups to a user"},
	{Name: "users:delete", Description: "permission to delete any user on the service, use with caution"},
}

const rootGroupName = "root"

const rootGroupDescription = "the most privileged group, holding every baseline permission. " +
	"Do not grant it to an untrusted user; create a narrower group instead."

// Policy selects whether Run actually seeds anything.
type Policy string

const (
	PolicySkip   Policy = "skip"
	PolicyEnsure Policy = "ensure"
)

// Run seeds the baseline permissions and the root group. Every insert is
// idempotent: a NameConflict from an already-present row is ignored, so
// running Run twice leaves the database identical to running it once (P7).
func Run(ctx context.Context, repos *storage.Repositories, policy Policy, logger *slog.Logger) error {
	if policy == PolicySkip {
		logger.Info("bootstrap policy is skip, leaving baseline permissions untouched")
		return nil
	}

	names := make([]string, 0, len(baselinePermissions))
	for _, perm := range baselinePermissions {
		p := perm
		if err := repos.Permissions.Insert(ctx, &p); err != nil && !errors.Is(err, domain.ErrNameConflict) {
			return err
		}
		names = append(names, p.Name)
	}

	root, err := domain.NewGroup(rootGroupName, rootGroupDescription, names)
	if err != nil {
		return err
	}
	if err := repos.Groups.Insert(ctx, root); err != nil {
		if errors.Is(err, domain.ErrNameConflict) {
			return ensureRootHoldsBaseline(ctx, repos, names)
		}
		return err
	}

	logger.Info("bootstrap complete", "permissions", len(names), "root_group", rootGroupName)
	return nil
}

// ensureRootHoldsBaseline handles the re-run case: root already exists, so
// grant any baseline permission it is still missing (e.g. the service was
// upgraded and a new baseline permission was added since the group was
// created).
func ensureRootHoldsBaseline(ctx context.Context, repos *storage.Repositories, names []string) error {
	root, err := repos.Groups.Retrieve(ctx, rootGroupName)
	if err != nil {
		return err
	}

	held := make(map[string]bool, len(root.Permissions))
	for _, p := range root.Permissions {
		held[p] = true
	}

	for _, name := range names {
		if held[name] {
			continue
		}
		if err := repos.Groups.GrantPermission(ctx, rootGroupName, name); err != nil && !errors.Is(err, domain.ErrNameError) {
			return err
		}
	}
	return nil
}
