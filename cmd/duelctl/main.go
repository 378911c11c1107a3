// cmd/duelctl/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/duelhall/internal/auth"
	"github.com/jason-s-yu/duelhall/internal/config"
	"github.com/jason-s-yu/duelhall/internal/database"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/jason-s-yu/duelhall/internal/leaderboard/sqlite"
	"github.com/jason-s-yu/duelhall/internal/users"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

const usage = `usage: duelctl <command> [args]

commands:
  init-db                      create the PostgreSQL tables
  settings                     show the effective configuration
  users ls                     list accounts
  users add                    create an account (interactive)
  users passwd <user_id>       change a password (interactive)
  users rm <user_id>           delete an account
  users enable|disable <id>    allow or block login
  leaderboard <game> [limit]   show the top of a game's leaderboard
  actions <room_id>            show the persisted action log of a room`

type ctl struct {
	cfg    config.Server
	logger *logrus.Logger
	pool   *pgxpool.Pool
}

func main() {
	limit := flag.Int("limit", leaderboard.DefaultLimit, "leaderboard rows to show")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadServer()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)
	c := &ctl{cfg: cfg, logger: logger}
	defer c.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := flag.Args()
	switch args[0] {
	case "init-db":
		err = c.initDB(ctx)
	case "settings":
		err = c.settings()
	case "users":
		err = c.users(ctx, args[1:])
	case "leaderboard":
		if len(args) < 2 {
			err = errors.New("leaderboard needs a game name")
			break
		}
		n := *limit
		if len(args) > 2 {
			if n, err = strconv.Atoi(args[2]); err != nil {
				err = fmt.Errorf("bad limit %q", args[2])
				break
			}
		}
		err = c.leaderboard(ctx, args[1], n)
	case "actions":
		if len(args) < 2 {
			err = errors.New("actions needs a room id")
			break
		}
		err = c.actions(ctx, args[1])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func (c *ctl) close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

func (c *ctl) db(ctx context.Context) (*pgxpool.Pool, error) {
	if c.pool != nil {
		return c.pool, nil
	}
	if c.cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	pool, err := database.Connect(ctx, c.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	c.pool = pool
	return pool, nil
}

func (c *ctl) initDB(ctx context.Context) error {
	pool, err := c.db(ctx)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}
	pterm.Success.Println("database initialised")
	return nil
}

func (c *ctl) settings() error {
	ttl, _ := c.cfg.TokenTTL()
	dbURL := "(unset)"
	if c.cfg.DatabaseURL != "" {
		dbURL = "(set)"
	}
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Setting", "Value"},
		{"PORT", strconv.Itoa(c.cfg.Port)},
		{"LOG_LEVEL", c.cfg.LogLevel},
		{"DATABASE_URL", dbURL},
		{"LEADERBOARD_BACKEND", c.cfg.LeaderboardBackend},
		{"SQLITE_PATH", c.cfg.SQLitePath},
		{"REDIS_ADDR", c.cfg.RedisAddr},
		{"HISTORIAN_QUEUE_NAME", c.cfg.QueueName},
		{"TOKEN_EXPIRE_TIME", ttl.String()},
		{"CLIENT_ORIGIN", fmt.Sprint(c.cfg.ClientOrigins)},
		{"MEMORY_REVEAL_DELAY", c.cfg.MemoryRevealDelay.String()},
		{"CARD_DUEL_ROUNDS", strconv.Itoa(c.cfg.CardDuelRounds)},
	}).Render()
}

func (c *ctl) userService(ctx context.Context) (*users.Service, error) {
	pool, err := c.db(ctx)
	if err != nil {
		return nil, err
	}
	return &users.Service{
		Store:  &database.UserStore{Pool: pool},
		Params: auth.DefaultParams,
		Logger: c.logger,
	}, nil
}

func (c *ctl) users(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("users needs a subcommand: ls, add, passwd, rm, enable, disable")
	}
	svc, err := c.userService(ctx)
	if err != nil {
		return err
	}

	switch args[0] {
	case "ls":
		list, err := svc.Store.List(ctx)
		if err != nil {
			return err
		}
		data := pterm.TableData{{"User ID", "Active", "Created"}}
		for _, u := range list {
			active := pterm.LightGreen("yes")
			if !u.IsActive {
				active = pterm.LightRed("no")
			}
			data = append(data, []string{pterm.Cyan(u.UserID), active, u.CreatedAt.Format(time.RFC3339)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	case "add":
		name, _ := pterm.DefaultInteractiveTextInput.Show("User ID")
		if _, err := svc.Store.GetByUserID(ctx, name); err == nil {
			return fmt.Errorf("user %s already exists", name)
		}
		pw, _ := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
		u, err := svc.Register(ctx, name, pw)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("created %s (%s)", u.UserID, u.ID)
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("users %s needs a user id", args[0])
	}
	name := args[1]
	switch args[0] {
	case "passwd":
		pw, _ := pterm.DefaultInteractiveTextInput.WithMask("*").Show("New password")
		if err := svc.ChangePassword(ctx, name, pw); err != nil {
			return err
		}
		pterm.Success.Printfln("password of %s updated", name)
	case "rm":
		ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultText(fmt.Sprintf("Delete %s?", name)).Show()
		if !ok {
			pterm.Info.Println("aborted")
			return nil
		}
		if err := svc.Store.Delete(ctx, name); err != nil {
			return err
		}
		pterm.Success.Printfln("deleted %s", name)
	case "enable", "disable":
		if err := svc.Store.SetActive(ctx, name, args[0] == "enable"); err != nil {
			return err
		}
		pterm.Success.Printfln("%s %sd", name, args[0])
	default:
		return fmt.Errorf("unknown users subcommand %q", args[0])
	}
	return nil
}

func (c *ctl) board(ctx context.Context) (leaderboard.Store, func(), error) {
	switch c.cfg.LeaderboardBackend {
	case config.BackendSQLite:
		s, err := sqlite.Open(c.cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.BackendPostgres:
		pool, err := c.db(ctx)
		if err != nil {
			return nil, nil, err
		}
		return &database.LeaderboardStore{Pool: pool}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("the %s leaderboard is not persisted", c.cfg.LeaderboardBackend)
}

func (c *ctl) leaderboard(ctx context.Context, game string, limit int) error {
	store, done, err := c.board(ctx)
	if err != nil {
		return err
	}
	defer done()

	entries, err := store.Top(ctx, game, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		pterm.Info.Printfln("no scores recorded for %s", game)
		return nil
	}
	data := pterm.TableData{{"#", "Name", "Best", "W", "L", "D"}}
	for i, e := range entries {
		data = append(data, []string{
			strconv.Itoa(i + 1), pterm.Cyan(e.Name), strconv.Itoa(e.BestScore),
			strconv.Itoa(e.Wins), strconv.Itoa(e.Losses), strconv.Itoa(e.Draws),
		})
	}
	pterm.DefaultSection.Println(game)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func (c *ctl) actions(ctx context.Context, room string) error {
	roomID, err := uuid.Parse(room)
	if err != nil {
		return fmt.Errorf("bad room id: %w", err)
	}
	pool, err := c.db(ctx)
	if err != nil {
		return err
	}
	recs, err := database.RoomActions(ctx, pool, roomID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		pterm.Info.Printfln("no actions stored for room %s", roomID)
		return nil
	}
	data := pterm.TableData{{"#", "Time", "Actor", "Action", "Payload"}}
	for _, r := range recs {
		payload, _ := json.Marshal(r.ActionPayload)
		data = append(data, []string{
			strconv.Itoa(r.ActionIndex),
			time.UnixMilli(r.Timestamp).Format(time.TimeOnly),
			r.ActorName,
			pterm.LightYellow(r.ActionType),
			string(payload),
		})
	}
	pterm.DefaultSection.Printfln("%s room %s", recs[0].Game, roomID)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
