package workgroup

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/johnhoman/kubeflow-centraldashboard/apis/v1alpha1"
	"github.com/johnhoman/kubeflow-centraldashboard/binding"
	"github.com/johnhoman/kubeflow-centraldashboard/identity"
	"github.com/johnhoman/kubeflow-centraldashboard/kfam"
)

const (
	errContactProfileController = "Unable to contact Profile Controller"
	errCreateProfile            = "Unexpected error creating profile"
	errEnvironmentInfo          = "Unexpected error getting environment info"
	errDeleteProfile            = "Unexpected error deleting profile"
	errAllWorkgroups            = "Unable to fetch all workgroup data"
	errFmtContributors          = "Unable to fetch contributors for %s"
	errUnauthenticated          = "Unable to ascertain user identity from request, cannot access route."
)

type existsResponse struct {
	HasAuth                 bool   `json:"hasAuth"`
	User                    string `json:"user"`
	HasWorkgroup            bool   `json:"hasWorkgroup"`
	RegistrationFlowAllowed bool   `json:"registrationFlowAllowed"`
}

type createRequest struct {
	Namespace string `json:"namespace"`
	User      string `json:"user"`
}

type contributorBody struct {
	Contributor string `json:"contributor"`
}

// Routes registers the workgroup routes on group. Everything registered
// after /env-info requires an authenticated caller.
func (a *API) Routes(group *gin.RouterGroup) {
	grp := group.Group("")

	grp.GET("/exists", a.exists)
	grp.POST("/create", a.create)
	grp.GET("/env-info", a.envInfo)

	grp.Use(requireAuth)

	grp.DELETE("/nuke-self", a.nukeSelf)
	grp.GET("/get-all-namespaces", a.allNamespaces)
	grp.GET("/get-contributors/:namespace", a.contributors)
	grp.POST("/add-contributor/:namespace", a.contributor(ActionCreate))
	grp.DELETE("/remove-contributor/:namespace", a.contributor(ActionRemove))
}

func requireAuth(c *gin.Context) {
	if !identity.FromContext(c.Request.Context()).HasAuth {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": errUnauthenticated})
		return
	}
	c.Next()
}

// abortWithError answers with the status of the upstream failure, 400 when
// there is none, and the upstream body when it sent one
func (a *API) abortWithError(c *gin.Context, msg string, err error) {
	code := http.StatusBadRequest
	message := msg

	var status apierrors.APIStatus
	if upstream, ok := kfam.StatusCode(err); ok {
		code = upstream
		if body := kfam.ResponseBody(err); body != "" {
			message = body
		}
	} else if errors.As(err, &status) && status.Status().Code != 0 {
		code = int(status.Status().Code)
	}

	a.logger.Info(msg, "error", err, "path", c.FullPath())
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

func (a *API) exists(c *gin.Context) {
	ctx := c.Request.Context()
	user := identity.FromContext(ctx)

	res := existsResponse{
		HasAuth:                 user.HasAuth,
		User:                    user.Username,
		RegistrationFlowAllowed: a.registrationFlowAllowed(),
	}
	if user.HasAuth {
		info, err := a.WorkgroupInfo(ctx, user)
		if err != nil {
			a.abortWithError(c, errContactProfileController, err)
			return
		}
		for _, ns := range info.Namespaces {
			if ns.Role == binding.RoleOwner {
				res.HasWorkgroup = true
				break
			}
		}
	} else {
		all, err := a.AllWorkgroups(ctx, user.Username)
		if err != nil {
			a.abortWithError(c, errContactProfileController, err)
			return
		}
		res.HasWorkgroup = len(all) > 0
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) create(c *gin.Context) {
	user := identity.FromContext(c.Request.Context())

	body := createRequest{}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		a.abortWithError(c, err.Error(), err)
		return
	}
	namespace := body.Namespace
	if namespace == "" {
		namespace = user.Username
	}
	owner := body.User
	if owner == "" {
		owner = user.Email
	}

	if err := a.profiles.CreateProfile(c.Request.Context(), v1alpha1.NewProfile(namespace, owner)); err != nil {
		a.abortWithError(c, errCreateProfile, err)
		return
	}
	a.logger.Debug("created profile", "namespace", namespace, "owner", owner)
	c.JSON(http.StatusOK, gin.H{"message": "Created namespace " + namespace})
}

func (a *API) envInfo(c *gin.Context) {
	ctx := c.Request.Context()
	user := identity.FromContext(ctx)

	var env EnvironmentInfo
	var err error
	if user.HasAuth {
		env, err = a.ProfileAwareEnv(ctx, user)
	} else {
		env, err = a.BasicEnvironment(ctx, user)
	}
	if err != nil {
		a.abortWithError(c, errEnvironmentInfo, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

func (a *API) nukeSelf(c *gin.Context) {
	user := identity.FromContext(c.Request.Context())
	namespace := user.Username

	serverBody, err := a.profiles.DeleteProfile(c.Request.Context(), namespace, user.Header())
	if err != nil {
		a.abortWithError(c, errDeleteProfile, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Removed namespace/profile " + namespace,
		"serverBody": serverBody,
	})
}

type namespaceRow struct {
	owner        *string
	contributors []string
}

// allNamespaces answers with one [namespace, owner, contributors] row per
// namespace in the order the profile controller listed them
func (a *API) allNamespaces(c *gin.Context) {
	bindings, err := a.profiles.ReadBindings(c.Request.Context(), kfam.BindingQuery{})
	if err != nil {
		a.abortWithError(c, errAllWorkgroups, err)
		return
	}

	order := make([]string, 0)
	rows := make(map[string]*namespaceRow)
	for _, b := range binding.ToSimple(bindings) {
		row, ok := rows[b.Namespace]
		if !ok {
			row = &namespaceRow{contributors: make([]string, 0)}
			rows[b.Namespace] = row
			order = append(order, b.Namespace)
		}
		if b.Role == binding.RoleOwner {
			user := b.User
			row.owner = &user
			continue
		}
		row.contributors = append(row.contributors, b.User)
	}

	table := make([][]any, 0, len(order))
	for _, namespace := range order {
		row := rows[namespace]
		table = append(table, []any{namespace, row.owner, strings.Join(row.contributors, ", ")})
	}
	c.JSON(http.StatusOK, table)
}

func (a *API) contributors(c *gin.Context) {
	namespace := c.Param("namespace")
	users, err := a.Contributors(c.Request.Context(), namespace)
	if err != nil {
		a.abortWithError(c, fmt.Sprintf(errFmtContributors, namespace), err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a *API) contributor(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		// an unreadable body is reported as a missing contributor
		body := contributorBody{}
		_ = c.ShouldBindJSON(&body)

		users, err := a.HandleContributor(c.Request.Context(), action, ContributorRequest{
			Namespace:   c.Param("namespace"),
			Contributor: body.Contributor,
			Header:      c.Request.Header,
		})
		if err != nil {
			var input *InputError
			if errors.As(err, &input) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": input.Message})
				return
			}
			a.abortWithError(c, err.Error(), err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}
