// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

//go:build integration

package store_test

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fittrack/accounts/internal/auth"
	authpg "github.com/fittrack/accounts/internal/auth/postgres"
	"github.com/fittrack/accounts/internal/store"
)

var _ = Describe("PostgreSQL schema", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("accounts_test"),
			postgres.WithUsername("accounts"),
			postgres.WithPassword("accounts"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		opts := store.DefaultConnectOptions()
		opts.Logger = slog.New(slog.DiscardHandler)
		pool, err = store.Connect(ctx, connStr, opts)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	Describe("Migrator", func() {
		It("walks the full up/down cycle", func() {
			migrator, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			defer migrator.Close()

			st, err := migrator.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Version).To(BeZero())
			Expect(st.Pending).NotTo(BeEmpty())

			Expect(migrator.Up()).To(Succeed())
			st, err = migrator.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Pending).To(BeEmpty())
			latest := st.Version

			Expect(migrator.Steps(-1)).To(Succeed())
			v, _, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(latest - 1))

			Expect(migrator.Down()).To(Succeed())
			v, dirty, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeZero())
			Expect(dirty).To(BeFalse())

			Expect(migrator.Up()).To(Succeed())
		})
	})

	Describe("account repositories", func() {
		var (
			accounts *authpg.AccountRepository
			sessions *authpg.SessionRepository
		)

		BeforeEach(func() {
			_, err := pool.Exec(ctx, `TRUNCATE accounts RESTART IDENTITY CASCADE`)
			Expect(err).NotTo(HaveOccurred())
			accounts = authpg.NewAccountRepository(pool)
			sessions = authpg.NewSessionRepository(pool)
		})

		newAccount := func(username, email string, phone *string) *auth.Account {
			w := decimal.RequireFromString("70.5")
			h := 180
			a, err := auth.NewAccount(auth.AccountFields{
				Username:     username,
				Email:        email,
				PasswordHash: "$argon2id$hash",
				FirstName:    "Test",
				LastName:     "User",
				PhoneNumber:  phone,
				Weight:       &w,
				Height:       &h,
			})
			Expect(err).NotTo(HaveOccurred())
			return a
		}

		It("round-trips an account with weight at two decimals", func() {
			a := newAccount("testuser", "testuser@email.com", nil)
			Expect(accounts.Create(ctx, a)).To(Succeed())

			got, err := accounts.FindByEmail(ctx, "TestUser@Email.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(a.ID))
			Expect(got.WeightString()).To(Equal("70.50"))
		})

		It("reports which unique field collided", func() {
			phone := "+447700900123"
			Expect(accounts.Create(ctx, newAccount("testuser", "testuser@email.com", &phone))).To(Succeed())

			err := accounts.Create(ctx, newAccount("testuser", "other@email.com", nil))
			field, ok := auth.ConflictField(err)
			Expect(ok).To(BeTrue())
			Expect(field).To(Equal(auth.ConflictUsername))

			err = accounts.Create(ctx, newAccount("other", "testuser@email.com", nil))
			field, _ = auth.ConflictField(err)
			Expect(field).To(Equal(auth.ConflictEmail))

			err = accounts.Create(ctx, newAccount("other", "other@email.com", &phone))
			field, _ = auth.ConflictField(err)
			Expect(field).To(Equal(auth.ConflictPhone))
		})

		It("removes sessions with their account", func() {
			a := newAccount("testuser", "testuser@email.com", nil)
			Expect(accounts.Create(ctx, a)).To(Succeed())

			s, err := auth.NewSession(a.ID, "hash", time.Now().Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(ctx, s)).To(Succeed())

			Expect(accounts.Delete(ctx, a.ID)).To(Succeed())
			_, err = sessions.GetByTokenHash(ctx, "hash")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("rejects out-of-range height at the database", func() {
			_, err := pool.Exec(ctx, `
				INSERT INTO accounts (username, email, password_hash, first_name, last_name, height)
				VALUES ('tall', 'tall@email.com', 'h', 'T', 'U', 301)`)
			Expect(err).To(HaveOccurred())
		})
	})
})
