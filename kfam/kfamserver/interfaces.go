package kfamserver

import (
	"github.com/gin-gonic/gin"
)

// Manager handles the access management routes
type Manager interface {
	AddContributor(c *gin.Context)
	RemoveContributor(c *gin.Context)
	ReadBindings(c *gin.Context)
	CreateProfile(c *gin.Context)
	RemoveProfile(c *gin.Context)
	IsClusterAdmin(c *gin.Context)
}

var _ Manager = &manager{}
