package service

import "errors"

var (
	ErrRepoURLRequired  = errors.New("repository url is required")
	ErrSectionRequired  = errors.New("section and repo info are required")
	ErrReadmeRequired   = errors.New("readme content is required")
	ErrInvalidScore     = errors.New("invalid score response")
	ErrOwnerKeyRequired = errors.New("client id is required")
	ErrInvalidShare     = errors.New("repo name and readme content are required")
)
