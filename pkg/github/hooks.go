package github

import (
	"context"
	"net/http"

	gh "github.com/google/go-github/v57/github"

	"pushrelay/pkg/apperrors"
)

// OutcomeKind enumerates per-repository registration results.
type OutcomeKind string

const (
	OutcomeRegistered OutcomeKind = "registered"
	OutcomeSkipped    OutcomeKind = "skipped"
	OutcomeFailed     OutcomeKind = "failed"
)

// RegistrationOutcome reports the result of one webhook registration.
type RegistrationOutcome struct {
	Repo   string      `json:"repo"`
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
	Status int         `json:"status,omitempty"`
	HookID int64       `json:"hook_id,omitempty"`
}

// RegisterPushHooks creates a push-event webhook on each named repository.
// The result always has exactly one entry per input repository, in input
// order; a failure on one repository never aborts the rest. Registering the
// same repository twice creates a second hook on the provider side: the
// provider does not dedupe, and neither does this call.
func RegisterPushHooks(ctx context.Context, client *gh.Client, fullNames []string, targetURL string) []RegistrationOutcome {
	outcomes := make([]RegistrationOutcome, 0, len(fullNames))
	for _, fullName := range fullNames {
		outcomes = append(outcomes, registerPushHook(ctx, client, fullName, targetURL))
	}
	return outcomes
}

func registerPushHook(ctx context.Context, client *gh.Client, fullName, targetURL string) RegistrationOutcome {
	outcome := RegistrationOutcome{Repo: fullName}

	owner, name, err := splitFullName(fullName)
	if err != nil {
		return failedOutcome(outcome, err)
	}

	repo, _, err := client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return failedOutcome(outcome, wrapAPIError("get repository", err))
	}
	if !repo.GetPermissions()["admin"] {
		outcome.Kind = OutcomeSkipped
		outcome.Reason = "no admin rights"
		return outcome
	}

	hook := &gh.Hook{
		Active: gh.Bool(true),
		Events: []string{"push"},
		Config: map[string]interface{}{
			"url":          targetURL,
			"content_type": "json",
		},
	}
	created, resp, err := client.Repositories.CreateHook(ctx, owner, name, hook)
	if err != nil {
		return failedOutcome(outcome, wrapAPIError("create hook", err))
	}
	if resp.StatusCode != http.StatusCreated {
		outcome.Kind = OutcomeFailed
		outcome.Status = resp.StatusCode
		outcome.Reason = "unexpected hook creation status"
		return outcome
	}
	outcome.Kind = OutcomeRegistered
	outcome.Status = resp.StatusCode
	outcome.HookID = created.GetID()
	return outcome
}

func failedOutcome(outcome RegistrationOutcome, err error) RegistrationOutcome {
	outcome.Kind = OutcomeFailed
	outcome.Reason = err.Error()
	if pe, ok := apperrors.AsProviderError(err); ok {
		outcome.Status = pe.Status
	}
	return outcome
}
