// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/taskvault/taskvault/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = migrator.Close() })
		Expect(migrator.Down()).To(Succeed())
	})

	It("starts at version zero with everything pending", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		pending, err := migrator.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]uint{1}))
	})

	It("applies, steps and rolls back the schema", func() {
		Expect(migrator.Up()).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(dirty).To(BeFalse())

		By("re-running Up as a no-op")
		Expect(migrator.Up()).To(Succeed())

		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())

		Expect(migrator.Steps(1)).To(Succeed())
		Expect(migrator.Down()).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
	})
})

var _ = Describe("Transactor", Ordered, func() {
	var (
		ctx context.Context
		tr  *store.Transactor
		db  store.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err := store.Open(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)
		db = pool
		tr = store.NewTransactor(pool)
	})

	countUsers := func() int {
		var n int
		Expect(db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)).To(Succeed())
		return n
	}

	It("commits writes made through Conn", func() {
		before := countUsers()
		err := tr.InTransaction(ctx, func(ctx context.Context) error {
			_, err := store.Conn(ctx, db).Exec(ctx,
				`INSERT INTO users (id, email, password_hash) VALUES (gen_random_uuid(), 'commit@example.com', 'x')`)
			return err
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(countUsers()).To(Equal(before + 1))
	})

	It("rolls back writes when the unit of work fails", func() {
		before := countUsers()
		failure := errors.New("abort")
		err := tr.InTransaction(ctx, func(ctx context.Context) error {
			if _, err := store.Conn(ctx, db).Exec(ctx,
				`INSERT INTO users (id, email, password_hash) VALUES (gen_random_uuid(), 'rollback@example.com', 'x')`); err != nil {
				return err
			}
			return failure
		})
		Expect(err).To(MatchError(failure))
		Expect(countUsers()).To(Equal(before))
	})
})
