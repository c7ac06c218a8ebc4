package workgroup

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/johnhoman/kubeflow-centraldashboard/binding"
)

// Action is the change HandleContributor applies
type Action int

const (
	ActionCreate Action = iota
	ActionRemove
)

func (a Action) describe() string {
	if a == ActionRemove {
		return "remove contributor"
	}
	return "add new contributor"
}

var emailPattern = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)

type ContributorRequest struct {
	Namespace   string
	Contributor string
	// Header is forwarded to the profile controller, which authorizes the
	// change against the caller it identifies
	Header http.Header
}

func (r ContributorRequest) validate() error {
	var missing []string
	if r.Contributor == "" {
		missing = append(missing, "contributor")
	}
	if r.Namespace == "" {
		missing = append(missing, "namespace")
	}
	if len(missing) > 0 {
		plural := ""
		if len(missing) > 1 {
			plural = "s"
		}
		return &InputError{
			Message: "Missing " + strings.Join(missing, " and ") + " field" + plural + ".",
		}
	}
	if !emailPattern.MatchString(r.Contributor) {
		return &InputError{Message: "Contributor doesn't look like a valid email address"}
	}
	return nil
}

// HandleContributor adds or removes a contributor and returns the
// contributors of the namespace after the change. The error is an
// *InputError, a *MutationError or a *RefreshError.
func (a *API) HandleContributor(ctx context.Context, action Action, req ContributorRequest) ([]string, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	b := binding.ToBinding(binding.Simple{
		User:      req.Contributor,
		Namespace: req.Namespace,
		Role:      binding.RoleContributor,
	})
	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del("Content-Length")

	var err error
	switch action {
	case ActionRemove:
		err = a.profiles.DeleteBinding(ctx, b, header)
	default:
		err = a.profiles.CreateBinding(ctx, b, header)
	}
	if err != nil {
		return nil, &MutationError{Action: action, Namespace: req.Namespace, Err: err}
	}
	a.logger.Debug("contributor changed", "namespace", req.Namespace, "contributor", req.Contributor, "action", action.describe())

	users, err := a.Contributors(ctx, req.Namespace)
	if err != nil {
		return nil, &RefreshError{Namespace: req.Namespace, Err: err}
	}
	return users, nil
}
