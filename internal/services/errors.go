package services

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline failure markers. Every error produced by a scan stage wraps exactly
// one of these so the workflow can classify it.
var (
	ErrExternalTool            = errors.New("external tool error")
	ErrNoMatch                 = errors.New("no fingerprint match")
	ErrNoTitleTag              = errors.New("no title tag")
	ErrCatalogRequest          = errors.New("catalog request failed")
	ErrNoMatchFound            = errors.New("no scorable candidate")
	ErrInconsistentCatalogData = errors.New("inconsistent catalog data")
	ErrIncompleteMetadata      = errors.New("incomplete metadata")
	ErrAlreadyExists           = errors.New("target already exists")
)

// Infrastructure markers shared by config, storage, and the API layer.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a second attempt has a realistic chance of
// succeeding. The workflow still retries every failure once; this only feeds
// the error hint attached to failure logs.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrIncompleteMetadata),
		errors.Is(err, ErrInconsistentCatalogData),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrNoTitleTag),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration):
		return false
	default:
		return true
	}
}

// Kind returns a short stable label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrNoTitleTag):
		return "no_title_tag"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrCatalogRequest):
		return "catalog_request"
	case errors.Is(err, ErrNoMatchFound):
		return "no_match_found"
	case errors.Is(err, ErrInconsistentCatalogData):
		return "inconsistent_catalog_data"
	case errors.Is(err, ErrIncompleteMetadata):
		return "incomplete_metadata"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
