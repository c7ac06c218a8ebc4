package kfamserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/johnhoman/kubeflow-centraldashboard/apis/v1alpha1"
	"github.com/johnhoman/kubeflow-centraldashboard/binding"
)

const (
	errReadProfile       = "failed to read profile"
	errListContributors  = "failed to list contributors"
	errCreateContributor = "failed to create contributor"
)

type ManagerOption func(m *manager)

func WithUserIDHeader(header string) ManagerOption {
	return func(m *manager) {
		m.header = header
	}
}

func WithUserIDPrefix(prefix string) ManagerOption {
	return func(m *manager) {
		m.prefix = prefix
	}
}

func WithAdmin(admins ...string) ManagerOption {
	return func(m *manager) {
		m.admins.Insert(admins...)
	}
}

func WithLogger(logger logging.Logger) ManagerOption {
	return func(m *manager) {
		m.logger = logger
	}
}

func NewManager(cli client.Client, opts ...ManagerOption) *manager {
	m := &manager{
		client: cli,
		admins: sets.NewString(),
		header: "kubeflow-userid",
		logger: logging.NewNopLogger(),
	}
	for _, f := range opts {
		f(m)
	}
	return m
}

type manager struct {
	// client is a Kubernetes client
	client client.Client
	logger logging.Logger
	// header is the user id header name from the request that identifies the user
	header string
	// prefix is the user id header name prefix from the request that identifies the user
	prefix string
	// admins are cluster admins
	admins sets.String
}

func (m *manager) caller(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader(m.header), m.prefix)
}

// namespaceAdmins returns the users allowed to manage the contributors of
// the profile: cluster admins, the profile owner and every owner contributor.
func (m *manager) namespaceAdmins(ctx context.Context, profile string) (sets.String, error) {
	p := &v1alpha1.Profile{}
	if err := m.client.Get(ctx, client.ObjectKey{Name: profile}, p); err != nil {
		return nil, errors.Wrap(err, errReadProfile)
	}

	contributorList := &v1alpha1.ContributorList{}
	if err := m.client.List(ctx, contributorList, client.InNamespace(p.Name)); err != nil {
		return nil, errors.Wrap(err, errListContributors)
	}

	admins := m.admins.Clone()
	if p.Spec.Owner.Kind == rbacv1.UserKind {
		admins.Insert(p.Spec.Owner.Name)
	}
	for _, item := range contributorList.Items {
		if item.IsOwner() {
			admins.Insert(item.Spec.Name)
		}
	}
	return admins, nil
}

func abortWithError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case apierrors.IsNotFound(err):
		code = http.StatusNotFound
	case apierrors.IsAlreadyExists(err):
		code = http.StatusConflict
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// CreateProfile creates a new profile for a user together with the
// contributor that makes the owner an admin of the namespace
func (m *manager) CreateProfile(c *gin.Context) {

	p := &v1alpha1.Profile{}
	if err := c.ShouldBindJSON(p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if p.Name == "" || p.Spec.Owner.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "profile name and owner are required",
		})
		return
	}

	if err := m.client.Create(c, p); err != nil {
		abortWithError(c, err)
		return
	}
	m.logger.Debug("created profile", "profile", p.Name, "owner", p.Spec.Owner.Name)

	if p.Spec.Owner.Kind == rbacv1.UserKind {
		owner := newContributor(binding.ToBinding(binding.Simple{
			User:      p.Spec.Owner.Name,
			Namespace: p.Name,
			Role:      binding.RoleOwner,
		}))
		if err := m.client.Create(c, owner); err != nil {
			abortWithError(c, errors.Wrap(err, errCreateContributor))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Created profile " + p.Name})
}

func (m *manager) RemoveProfile(c *gin.Context) {

	name := c.Param("profile")
	admins, err := m.namespaceAdmins(c, name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !admins.Has(m.caller(c)) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only namespace owners can remove a profile"})
		return
	}

	if err := m.client.DeleteAllOf(c, &v1alpha1.Contributor{}, client.InNamespace(name)); err != nil {
		abortWithError(c, err)
		return
	}
	p := &v1alpha1.Profile{}
	p.Name = name
	if err := m.client.Delete(c, p); client.IgnoreNotFound(err) != nil {
		abortWithError(c, err)
		return
	}
	m.logger.Debug("removed profile", "profile", name)
	c.JSON(http.StatusOK, gin.H{"message": "Removed profile " + name})
}

// AddContributor adds a contributor to a user profile
func (m *manager) AddContributor(c *gin.Context) {

	b, ok := m.bindingFromRequest(c)
	if !ok {
		return
	}

	contributor := newContributor(b)
	if err := m.client.Create(c, contributor); err != nil {
		abortWithError(c, err)
		return
	}
	m.logger.Debug("added contributor", "namespace", b.ReferredNamespace, "user", b.User.Name)
	c.JSON(http.StatusOK, gin.H{"message": "Added Contributor"})
}

func (m *manager) RemoveContributor(c *gin.Context) {

	b, ok := m.bindingFromRequest(c)
	if !ok {
		return
	}

	if err := m.client.DeleteAllOf(c,
		&v1alpha1.Contributor{},
		client.MatchingLabels{v1alpha1.LabelOwnerID: v1alpha1.UserID(b.User.Name)},
		client.InNamespace(b.ReferredNamespace),
	); err != nil {
		abortWithError(c, err)
		return
	}
	m.logger.Debug("removed contributor", "namespace", b.ReferredNamespace, "user", b.User.Name)
	c.JSON(http.StatusOK, gin.H{"message": "Removed Contributor"})
}

// bindingFromRequest decodes a binding and checks that the caller may
// change the contributors of its namespace. The response is written when
// ok is false.
func (m *manager) bindingFromRequest(c *gin.Context) (b binding.Binding, ok bool) {
	if err := c.ShouldBindJSON(&b); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return b, false
	}
	if b.User == nil || b.User.Kind != rbacv1.UserKind || b.RoleRef == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "only users can be added as contributors",
		})
		return b, false
	}

	admins, err := m.namespaceAdmins(c, b.ReferredNamespace)
	if err != nil {
		abortWithError(c, err)
		return b, false
	}
	if !admins.Has(m.caller(c)) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "only namespace owners can manage contributors",
		})
		return b, false
	}
	return b, true
}

func (m *manager) ReadBindings(c *gin.Context) {
	namespace := c.Query("namespaces")
	user := c.Query("user")
	role := c.Query("role")

	opts := make([]client.ListOption, 0)
	if namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}
	if user != "" || role != "" {
		selector := client.MatchingLabels{}
		if user != "" {
			selector[v1alpha1.LabelOwnerID] = v1alpha1.UserID(user)
		}
		if role != "" {
			selector[v1alpha1.LabelRole] = role
		}
		opts = append(opts, selector)
	}

	contributorList := &v1alpha1.ContributorList{}
	if err := m.client.List(c, contributorList, opts...); err != nil {
		abortWithError(c, errors.Wrap(err, errListContributors))
		return
	}

	bindings := make([]binding.Binding, 0, len(contributorList.Items))
	for _, contributor := range contributorList.Items {
		role := binding.RoleContributor
		if contributor.IsOwner() {
			role = binding.RoleOwner
		}
		bindings = append(bindings, binding.ToBinding(binding.Simple{
			User:      contributor.Spec.Name,
			Namespace: contributor.Namespace,
			Role:      role,
		}))
	}

	c.JSON(http.StatusOK, gin.H{"bindings": bindings})
}

func (m *manager) IsClusterAdmin(c *gin.Context) {
	user := c.Query("user")
	if user == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "missing required param 'user'",
		})
		return
	}
	c.String(http.StatusOK, strconv.FormatBool(m.admins.Has(user)))
}

func newContributor(b binding.Binding) *v1alpha1.Contributor {
	role := v1alpha1.ContributorRoleContributor
	if r, ok := binding.ClusterRole(b.RoleRef.Name).Role(); ok && r == binding.RoleOwner {
		role = v1alpha1.ContributorRoleOwner
	}

	contributor := &v1alpha1.Contributor{}
	contributor.Name = v1alpha1.UserID(b.User.Name)
	contributor.Namespace = b.ReferredNamespace
	contributor.Labels = map[string]string{
		v1alpha1.LabelOwnerID: v1alpha1.UserID(b.User.Name),
		v1alpha1.LabelRole:    b.RoleRef.Name,
	}
	contributor.Spec = v1alpha1.ContributorSpec{
		Name: b.User.Name,
		Role: role,
	}
	return contributor
}
