// Package kfamserver serves the profile controller's access management API
// from Profile and Contributor resources. The dashboard runs it in-process
// when --mock-kfam is set and the tests use it as the upstream.
package kfamserver

import (
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/gin-gonic/gin"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

type Options struct {
	BaseURL      string
	UserIDPrefix string
	UserIDHeader string
	Admins       []string
	Logger       logging.Logger
}

// NewServer returns a new *gin.Engine instance with the Access Management
// routes configured
func NewServer(cli client.Client, options Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	opts := make([]ManagerOption, 0)
	if options.Admins != nil {
		opts = append(opts, WithAdmin(options.Admins...))
	}
	if options.UserIDPrefix != "" {
		opts = append(opts, WithUserIDPrefix(options.UserIDPrefix))
	}
	if options.UserIDHeader != "" {
		opts = append(opts, WithUserIDHeader(options.UserIDHeader))
	}
	if options.Logger != nil {
		opts = append(opts, WithLogger(options.Logger))
	}

	mgr := NewManager(cli, opts...)

	grp := router.Group(options.BaseURL).Group("/v1")

	grp.GET("/role/clusteradmin", mgr.IsClusterAdmin)

	grp.GET("/bindings", mgr.ReadBindings)
	grp.POST("/bindings", mgr.AddContributor)
	grp.DELETE("/bindings", mgr.RemoveContributor)

	grp.POST("/profiles", mgr.CreateProfile)
	grp.DELETE("/profiles/:profile", mgr.RemoveProfile)

	return router
}
