// Golang port of CodeLive
// Copyright (C) 2025-2026 Jakob Ackermann <das7pad@outlook.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/das7pad/codelive/cmd/pkg/utils"
	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/httpUtils"
	"github.com/das7pad/codelive/pkg/models/file"
	"github.com/das7pad/codelive/pkg/options/listenAddress"
	"github.com/das7pad/codelive/services/changelog/pkg/managers/changeLog"
)

func main() {
	triggerExitCtx, triggerExit := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGUSR1, syscall.SIGTERM,
	)
	defer triggerExit()

	rClient := utils.MustConnectRedis(triggerExitCtx)
	db := utils.MustConnectPostgres(triggerExitCtx)

	clm, err := changeLog.New(db, rClient)
	if err != nil {
		panic(errors.Tag(err, "changeLog setup"))
	}
	fm := file.New(db)

	handler := newHttpController(clm, fm)

	eg, ctx := errgroup.WithContext(triggerExitCtx)
	server := http.Server{
		Handler: handler.GetRouter(),
	}
	httpUtils.ListenAndServeEach(eg.Go, &server, listenAddress.Parse(3015))
	eg.Go(func() error {
		<-ctx.Done()
		ctx2, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		return server.Shutdown(ctx2)
	})
	if err = eg.Wait(); err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}
