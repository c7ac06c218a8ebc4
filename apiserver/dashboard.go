package apiserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/johnhoman/kubeflow-centraldashboard/binding"
	"github.com/johnhoman/kubeflow-centraldashboard/identity"
	"github.com/johnhoman/kubeflow-centraldashboard/kube"
	"github.com/johnhoman/kubeflow-centraldashboard/workgroup"
)

const (
	errPlatformInfo  = "Unable to fetch platform info"
	errNamespaces    = "Unable to list namespaces"
	errActivities    = "Unable to list events"
	errDashboardData = "Unable to read dashboard configuration"
	errFmtMissingKey = "Dashboard configuration has no %s"
	errFmtInvalidKey = "Dashboard configuration %s is not valid JSON"

	linksKey    = "links"
	settingsKey = "settings"
)

type dashboard struct {
	cluster   kube.Interface
	workgroup *workgroup.API
	logger    logging.Logger
}

func newDashboard(cluster kube.Interface, api *workgroup.API, logger logging.Logger) *dashboard {
	return &dashboard{cluster: cluster, workgroup: api, logger: logger}
}

func (d *dashboard) Routes(group *gin.RouterGroup) {
	group.GET("/platform-info", d.platformInfo)
	group.GET("/namespaces", d.namespaces)
	group.GET("/activities/:namespace", d.activities)
	group.GET("/dashboard-links", d.configMapKey(linksKey))
	group.GET("/dashboard-settings", d.configMapKey(settingsKey))
}

func (d *dashboard) abortWithError(c *gin.Context, msg string, err error) {
	code := http.StatusBadRequest
	var status apierrors.APIStatus
	if errors.As(err, &status) && status.Status().Code != 0 {
		code = int(status.Status().Code)
	}
	d.logger.Info(msg, "error", err, "path", c.FullPath())
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func (d *dashboard) platformInfo(c *gin.Context) {
	info, err := d.workgroup.PlatformInfo(c.Request.Context())
	if err != nil {
		d.abortWithError(c, errPlatformInfo, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (d *dashboard) namespaces(c *gin.Context) {
	ctx := c.Request.Context()
	namespaces, err := d.cluster.Namespaces(ctx)
	if err != nil {
		d.abortWithError(c, errNamespaces, err)
		return
	}
	c.JSON(http.StatusOK, binding.FromNamespaces(identity.FromContext(ctx).Email, namespaces))
}

func (d *dashboard) activities(c *gin.Context) {
	events, err := d.cluster.EventsForNamespace(c.Request.Context(), c.Param("namespace"))
	if err != nil {
		d.abortWithError(c, errActivities, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// configMapKey serves the JSON document stored under key in the
// dashboard ConfigMap
func (d *dashboard) configMapKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cm, err := d.cluster.ConfigMap(c.Request.Context())
		if err != nil {
			d.abortWithError(c, errDashboardData, err)
			return
		}
		raw, ok := cm.Data[key]
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf(errFmtMissingKey, key)})
			return
		}
		if !json.Valid([]byte(raw)) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf(errFmtInvalidKey, key)})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(raw))
	}
}
