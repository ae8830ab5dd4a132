// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

//go:build integration

package api_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Accounts", func() {
	Describe("registration", func() {
		It("registers a user under the lowercased email", func() {
			resp := register("Ada@Example.COM", "correct horse battery")

			Expect(resp.Status).To(Equal(http.StatusCreated))
			Expect(resp.Body["email"]).To(Equal("ada@example.com"))
			Expect(resp.Body["message"]).To(Equal("User registered successfully"))
			Expect(resp.Body["user_id"]).NotTo(BeEmpty())
		})

		It("rejects a duplicate email regardless of case", func() {
			Expect(register("ada@example.com", "correct horse battery").Status).To(Equal(http.StatusCreated))

			resp := register("ADA@example.com", "another password")

			Expect(resp.Status).To(Equal(http.StatusConflict))
			Expect(resp.Body["detail"]).To(Equal("Email already registered"))
		})

		It("rejects a short password", func() {
			resp := register("ada@example.com", "short")

			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.Body["detail"]).To(Equal("Password must be at least 8 characters"))
		})

		It("rejects a malformed email", func() {
			resp := register("not-an-email", "correct horse battery")

			Expect(resp.Status).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("login", func() {
		BeforeEach(func() {
			Expect(register("ada@example.com", "correct horse battery").Status).To(Equal(http.StatusCreated))
		})

		It("issues a bearer token for valid credentials", func() {
			resp := call(http.MethodPost, "/api/auth/login", "", map[string]string{
				"email": "ADA@example.com", "password": "correct horse battery",
			})

			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.Body["token_type"]).To(Equal("bearer"))
			Expect(resp.Body["expires_in"]).To(BeNumerically("==", 86400))
			Expect(resp.Body["access_token"]).NotTo(BeEmpty())
			Expect(resp.Body["user"]).To(HaveKeyWithValue("email", "ada@example.com"))

			token := resp.Body["access_token"].(string)
			Expect(call(http.MethodGet, "/api/tasks", token, nil).Status).To(Equal(http.StatusOK))
		})

		It("answers a wrong password and an unknown email identically", func() {
			wrong := call(http.MethodPost, "/api/auth/login", "", map[string]string{
				"email": "ada@example.com", "password": "wrong password",
			})
			unknown := call(http.MethodPost, "/api/auth/login", "", map[string]string{
				"email": "nobody@example.com", "password": "correct horse battery",
			})

			Expect(wrong.Status).To(Equal(http.StatusUnauthorized))
			Expect(unknown.Status).To(Equal(wrong.Status))
			Expect(unknown.Raw).To(Equal(wrong.Raw))
			Expect(wrong.Body["detail"]).To(Equal("Invalid email or password"))
		})
	})

	Describe("bearer tokens", func() {
		It("rejects a missing or forged token", func() {
			for _, token := range []string{"", "not.a.jwt"} {
				resp := call(http.MethodGet, "/api/tasks", token, nil)
				Expect(resp.Status).To(Equal(http.StatusUnauthorized))
				Expect(resp.Body["detail"]).To(Equal("Could not validate credentials"))
				Expect(resp.Header.Get("WWW-Authenticate")).To(Equal("Bearer"))
			}
		})

		It("stops working once the account is gone", func() {
			token := signUp("ada@example.com")
			_, err := env.pool.Exec(env.ctx, "DELETE FROM users WHERE email = $1", "ada@example.com")
			Expect(err).NotTo(HaveOccurred())

			Expect(call(http.MethodGet, "/api/tasks", token, nil).Status).To(Equal(http.StatusUnauthorized))
		})
	})
})
