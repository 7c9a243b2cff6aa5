// Package api exposes a read-only introspection server over the
// ledger: era, per-account, per-IP-set, and claimable-balance queries.
// Action dispatch is deliberately not reachable through this surface
// (spec §1's exclusion of transaction dispatch from the core).
package api

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ocif-labs/ip-staking/internal/logger"
	"github.com/ocif-labs/ip-staking/pkg/events"
	"github.com/ocif-labs/ip-staking/pkg/ledger"
	"github.com/ocif-labs/ip-staking/pkg/types"
)

// Server wraps a gin engine bound to the ledger.
type Server struct {
	engine *gin.Engine
	server *http.Server
	log    *logger.Logger
}

// NewServer builds the introspection server, mirroring the teacher's
// `api.NewServer(cfg, ..., log)` / `Start()` / `Shutdown(ctx)` lifecycle.
func NewServer(port int, l *ledger.Ledger, ws *events.WebSocketEmitter, log *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{log: log}

	engine.GET("/era", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"current_era": uint32(l.CurrentEra())})
	})

	engine.GET("/account/:id", func(c *gin.Context) {
		acct, err := parseAccountID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		triple, ok := l.AccountTriple(acct)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "account has no stake record"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"active":          triple.Active.String(),
			"pending_stake":   triple.PendingStake.String(),
			"pending_unstake": triple.PendingUnstake.String(),
		})
	})

	engine.GET("/account/:id/claimable", func(c *gin.Context) {
		acct, err := parseAccountID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"claimable": l.Claimable(acct).String()})
	})

	engine.GET("/ips/:id", func(c *gin.Context) {
		ips, err := parseIpsID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, ok := l.IpsRecord(ips)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "ip set not registered"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"total_stake":          rec.TotalStake.String(),
			"next_era_new_stake":   rec.NextEraNewStake.String(),
			"next_era_new_unstake": rec.NextEraNewUnstake.String(),
			"block_registered_at":  rec.BlockRegisteredAt,
		})
	})

	engine.GET("/ips/:id/stakers", func(c *gin.Context) {
		ips, err := parseIpsID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !l.IpsExists(ips) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ip set not registered"})
			return
		}
		stakers := make([]gin.H, 0)
		for _, key := range l.AllPairKeys() {
			if key.Ips != ips {
				continue
			}
			rec, ok := l.PairRecord(key.Account, key.Ips)
			if !ok || rec.Active == nil {
				continue
			}
			stakers = append(stakers, gin.H{
				"account": key.Account.String(),
				"active":  rec.Active.Balance.String(),
				"era":     rec.Active.Era,
			})
		}
		c.JSON(http.StatusOK, gin.H{"stakers": stakers})
	})

	if ws != nil {
		engine.GET("/events", gin.WrapF(ws.HandleConn))
	}

	s.engine = engine
	s.server = &http.Server{Addr: ":" + strconv.Itoa(port), Handler: engine}
	return s
}

func parseAccountID(raw string) (types.AccountID, error) {
	var out types.AccountID
	decoded, err := hex.DecodeString(raw)
	if err != nil || len(decoded) == 0 {
		return out, errors.New("invalid account id: expected hex")
	}
	copy(out[:], decoded)
	return out, nil
}

func parseIpsID(raw string) (types.IpsID, error) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.New("invalid ip set id")
	}
	return types.IpsID(n), nil
}

// Start runs the HTTP server in the background.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("api server failed")
		}
	}()
	s.log.WithField("addr", s.server.Addr).Info("api server started")
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
