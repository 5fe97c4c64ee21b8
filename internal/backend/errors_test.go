package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func apierrorsForbidden() error {
	return apierrors.NewForbidden(schema.GroupResource{Resource: "namespaces"}, "", errors.New("user cannot list namespaces"))
}

func TestStatusFor(t *testing.T) {
	gr := schema.GroupResource{Group: "rbac.authorization.k8s.io", Resource: "roles"}
	cases := []struct {
		err  error
		want int
	}{
		{apierrorsForbidden(), http.StatusForbidden},
		{apierrors.NewNotFound(gr, "x"), http.StatusNotFound},
		{apierrors.NewAlreadyExists(gr, "x"), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", apierrors.NewConflict(gr, "x", errors.New("changed"))), http.StatusConflict},
		{apierrors.NewBadRequest("bad"), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
