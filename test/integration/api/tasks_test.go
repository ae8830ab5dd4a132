// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

//go:build integration

package api_test

import (
	"fmt"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

func taskPath(id int64, suffix ...string) string {
	return fmt.Sprintf("/api/tasks/%d%s", id, strings.Join(suffix, ""))
}

var _ = Describe("Tasks", func() {
	var token string

	BeforeEach(func() {
		token = signUp("ada@example.com")
	})

	It("creates, reads, updates, toggles and deletes a task", func() {
		resp := call(http.MethodPost, "/api/tasks", token, map[string]any{
			"title": "  Buy groceries  ", "description": "milk, eggs",
		})
		Expect(resp.Status).To(Equal(http.StatusCreated))
		Expect(resp.Body["title"]).To(Equal("Buy groceries"))
		Expect(resp.Body["completed"]).To(BeFalse())
		id := int64(resp.Body["id"].(float64))

		resp = call(http.MethodGet, taskPath(id), token, nil)
		Expect(resp.Status).To(Equal(http.StatusOK))
		Expect(resp.Body["description"]).To(Equal("milk, eggs"))

		resp = call(http.MethodPut, taskPath(id), token, map[string]any{"title": "Buy bread"})
		Expect(resp.Status).To(Equal(http.StatusOK))
		Expect(resp.Body["title"]).To(Equal("Buy bread"))
		Expect(resp.Body["description"]).To(BeNil())

		resp = call(http.MethodPatch, taskPath(id, "/complete"), token, nil)
		Expect(resp.Status).To(Equal(http.StatusOK))
		Expect(resp.Body["completed"]).To(BeTrue())

		resp = call(http.MethodPatch, taskPath(id, "/complete"), token, nil)
		Expect(resp.Body["completed"]).To(BeFalse())

		Expect(call(http.MethodDelete, taskPath(id), token, nil).Status).To(Equal(http.StatusNoContent))
		Expect(call(http.MethodDelete, taskPath(id), token, nil).Status).To(Equal(http.StatusNotFound))
		Expect(call(http.MethodGet, taskPath(id), token, nil).Status).To(Equal(http.StatusNotFound))
	})

	It("sets completion exactly when a value is given", func() {
		id := createTask(token, "Water plants")

		for range 2 {
			resp := call(http.MethodPatch, taskPath(id, "/complete?completed=true"), token, nil)
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.Body["completed"]).To(BeTrue())
		}
	})

	It("hides other users' tasks behind 404", func() {
		id := createTask(token, "Private")
		intruder := signUp("eve@example.com")

		want := fmt.Sprintf("Task %d not found", id)
		for _, r := range []struct {
			method, path string
			body         any
		}{
			{http.MethodGet, taskPath(id), nil},
			{http.MethodPut, taskPath(id), map[string]any{"title": "Mine now"}},
			{http.MethodPatch, taskPath(id, "/complete"), nil},
			{http.MethodDelete, taskPath(id), nil},
		} {
			resp := call(r.method, r.path, intruder, r.body)
			Expect(resp.Status).To(Equal(http.StatusNotFound), r.method)
			Expect(resp.Body["detail"]).To(Equal(want))
		}

		Expect(call(http.MethodGet, "/api/tasks", intruder, nil).Body["total"]).To(BeNumerically("==", 0))

		resp := call(http.MethodGet, taskPath(id), token, nil)
		Expect(resp.Status).To(Equal(http.StatusOK))
		Expect(resp.Body["title"]).To(Equal("Private"))
		Expect(resp.Body["completed"]).To(BeFalse())
	})

	Describe("validation", func() {
		DescribeTable("title and description lengths",
			func(title, description string, want int) {
				body := map[string]any{"title": title}
				if description != "" {
					body["description"] = description
				}
				Expect(call(http.MethodPost, "/api/tasks", token, body).Status).To(Equal(want))
			},
			Entry("200-character title", strings.Repeat("t", 200), "", http.StatusCreated),
			Entry("201-character title", strings.Repeat("t", 201), "", http.StatusBadRequest),
			Entry("blank title", "   ", "", http.StatusBadRequest),
			Entry("1000-character description", "ok", strings.Repeat("d", 1000), http.StatusCreated),
			Entry("1001-character description", "ok", strings.Repeat("d", 1001), http.StatusBadRequest),
		)

		It("treats a non-numeric id as not found", func() {
			Expect(call(http.MethodGet, "/api/tasks/abc", token, nil).Status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("listing", func() {
		BeforeEach(func() {
			for i := range 5 {
				id := createTask(token, fmt.Sprintf("task %d", i))
				if i%2 == 0 {
					Expect(call(http.MethodPatch, taskPath(id, "/complete?completed=true"), token, nil).Status).
						To(Equal(http.StatusOK))
				}
			}
		})

		It("returns newest first with an unpaged total", func() {
			resp := call(http.MethodGet, "/api/tasks?limit=2&offset=1", token, nil)

			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.Body["total"]).To(BeNumerically("==", 5))
			Expect(resp.Body["limit"]).To(BeNumerically("==", 2))
			Expect(resp.Body["offset"]).To(BeNumerically("==", 1))
			tasks := resp.Body["tasks"].([]any)
			Expect(tasks).To(HaveLen(2))
			Expect(tasks[0]).To(HaveKeyWithValue("title", "task 3"))
			Expect(tasks[1]).To(HaveKeyWithValue("title", "task 2"))
		})

		It("filters by completion and clamps the limit", func() {
			resp := call(http.MethodGet, "/api/tasks?completed=true&limit=5000", token, nil)

			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.Body["limit"]).To(BeNumerically("==", 1000))
			Expect(resp.Body["total"]).To(BeNumerically("==", 3))
			for _, t := range resp.Body["tasks"].([]any) {
				Expect(t).To(HaveKeyWithValue("completed", true))
			}
		})

		It("rejects a zero limit and a negative offset", func() {
			Expect(call(http.MethodGet, "/api/tasks?limit=0", token, nil).Status).To(Equal(http.StatusBadRequest))
			Expect(call(http.MethodGet, "/api/tasks?offset=-1", token, nil).Status).To(Equal(http.StatusBadRequest))
		})

		It("returns an empty page past the end", func() {
			resp := call(http.MethodGet, "/api/tasks?offset=50", token, nil)

			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.Body["tasks"]).To(BeEmpty())
			Expect(resp.Body["total"]).To(BeNumerically("==", 5))
		})
	})
})
