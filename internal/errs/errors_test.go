// Copyright 2026 The Agora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestCodes(t *testing.T) {
	cases := []struct {
		kind   Kind
		code   int
		status int
	}{
		{KindParseID, 40001, http.StatusBadRequest},
		{KindValidation, 40002, http.StatusBadRequest},
		{KindNotFound, 40003, http.StatusNotFound},
		{KindWrongCredentials, 40004, http.StatusUnauthorized},
		{KindInvalidToken, 40005, http.StatusUnauthorized},
		{KindLocked, 40006, http.StatusLocked},
		{KindForbidden, 40007, http.StatusForbidden},
		{KindRateLimited, 40008, http.StatusTooManyRequests},
		{KindTokenCreation, 50001, http.StatusInternalServerError},
		{KindDatabase, 50002, http.StatusInternalServerError},
		{KindTaskExecution, 50003, http.StatusInternalServerError},
		{KindHashPassword, 50004, http.StatusInternalServerError},
		{KindInternal, 50010, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		e := New(tc.kind, "msg")
		if e.Code() != tc.code {
			t.Errorf("kind %d: expected code %d, got %d", tc.kind, tc.code, e.Code())
		}
		if e.Status() != tc.status {
			t.Errorf("kind %d: expected status %d, got %d", tc.kind, tc.status, e.Status())
		}
	}
}

func TestServerCaused(t *testing.T) {
	if WrongCredentials().ServerCaused() {
		t.Error("4xxxx codes are client-caused")
	}
	if !Database(errors.New("boom")).ServerCaused() {
		t.Error("5xxxx codes are server-caused")
	}
}

func TestResponseBody_HidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused on 10.0.0.5")
	e := Database(cause)

	body := e.ResponseBody()
	if body.Message != "database error" {
		t.Errorf("internal cause must not leak, got %q", body.Message)
	}
	if body.Code != 50002 || body.Status != 500 || !body.Error {
		t.Errorf("unexpected body: %+v", body)
	}

	// The cause stays reachable for server-side logs
	if !errors.Is(e, cause) {
		t.Error("expected cause to unwrap")
	}
}

func TestFrom(t *testing.T) {
	appErr := Forbidden("")
	if From(fmt.Errorf("wrapped: %w", appErr)) != appErr {
		t.Error("expected wrapped application error to surface unchanged")
	}

	plain := errors.New("some internal detail")
	converted := From(plain)
	if converted.Kind != KindInternal {
		t.Errorf("expected unknown errors wrapped as internal, got kind %d", converted.Kind)
	}
	if converted.Message == plain.Error() {
		t.Error("raw error text must not become the client message")
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("context: %w", RateLimited())
	if !IsKind(err, KindRateLimited) {
		t.Error("expected kind match through wrapping")
	}
	if IsKind(err, KindForbidden) {
		t.Error("expected kind mismatch")
	}
	if IsKind(errors.New("plain"), KindInternal) {
		t.Error("plain errors carry no kind")
	}
}

func TestLocked_CarriesTimestamp(t *testing.T) {
	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	e := Locked(&at)
	if e.LockedAt == nil || !e.LockedAt.Equal(at) {
		t.Error("expected lock timestamp on the error")
	}
	if e.Status() != http.StatusLocked {
		t.Errorf("expected 423, got %d", e.Status())
	}

	// The timestamp must reach clients through the message, which is the
	// only error field the response body renders.
	want := "account is locked since 2026-02-01T12:00:00Z"
	if e.Message != want {
		t.Errorf("expected message %q, got %q", want, e.Message)
	}
	if body := e.ResponseBody(); body.Message != want {
		t.Errorf("expected body message %q, got %q", want, body.Message)
	}
}

func TestLocked_NoTimestamp(t *testing.T) {
	e := Locked(nil)
	if e.Message != "account is locked" {
		t.Errorf("unexpected message %q", e.Message)
	}
	if e.LockedAt != nil {
		t.Error("expected nil lock timestamp")
	}
}
