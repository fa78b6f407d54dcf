package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"resumeStudio/internal/auth"
	"resumeStudio/internal/cache"
	"resumeStudio/internal/config"
	"resumeStudio/internal/database"
	"resumeStudio/internal/document"
	"resumeStudio/internal/storage"
	"resumeStudio/internal/tasks"
	"resumeStudio/internal/worker"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var dbFlags struct {
	host     string
	port     int
	name     string
	user     string
	password string
	sslmode  string
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "resumeStudio 运维命令",
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "管理账号",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "创建账号并打印一次性随机密码",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		u := strings.TrimSpace(username)
		if u == "" {
			return errors.New("missing required flag: --username")
		}

		dbCfg, err := loadDatabaseConfig(dbFlags.host, dbFlags.port, dbFlags.name, dbFlags.user, dbFlags.password, dbFlags.sslmode)
		if err != nil {
			return fmt.Errorf("load database config: %w", err)
		}
		db, err := database.InitDatabase(dbCfg)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return err
		}

		var existing database.User
		switch err := db.Where("username = ?", u).First(&existing).Error; {
		case err == nil:
			return fmt.Errorf("user %q already exists", u)
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("query user: %w", err)
		}

		password, err := generateRandomPassword(24)
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		hashed, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user := database.User{Username: u, PasswordHash: hashed}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Printf("已创建账号：\n")
		fmt.Printf("用户名: %s\n", u)
		fmt.Printf("初始密码: %s\n", password)
		fmt.Printf("提示：该密码仅显示一次。\n")
		return nil
	},
}

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "管理回收站",
}

var trashPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "立即删除超过保留期的归档文档",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		db, err := database.InitDatabase(cfg.Database)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		storageClient, err := storage.NewClient(cfg.MinIO)
		if err != nil {
			return fmt.Errorf("init storage client: %w", err)
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		defer redisClient.Close()

		deps := worker.PurgeDeps{Storage: storageClient}
		if err := redisClient.Ping(cmd.Context()).Err(); err != nil {
			logger.Warn("redis unavailable, cache will expire on its own", slog.Any("error", err))
		} else {
			deps.Cache = cache.NewDocumentCache(redisClient, cfg.API.CacheTTL)
			deps.Events = cache.NewEventPublisher(redisClient)
		}

		h := worker.NewPurgeHandler(document.NewService(db), deps, cfg.Trash.Retention, cfg.Trash.PurgeBatch, logger)
		n, err := h.Purge(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("已删除 %d 份归档文档\n", n)
		return nil
	},
}

var trashEnqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "把一次清理任务交给 worker 执行",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
		defer client.Close()

		task, err := tasks.NewTrashPurgeTask(cfg.Trash.PurgeBatch, uuid.NewString())
		if err != nil {
			return fmt.Errorf("build purge task: %w", err)
		}
		info, err := client.EnqueueContext(cmd.Context(), task)
		if errors.Is(err, asynq.ErrDuplicateTask) {
			fmt.Println("已有清理任务在队列中")
			return nil
		}
		if err != nil {
			return fmt.Errorf("enqueue purge task: %w", err)
		}
		fmt.Printf("已入队 %s (queue=%s)\n", info.ID, info.Queue)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbFlags.host, "db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
	pf.IntVar(&dbFlags.port, "db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
	pf.StringVar(&dbFlags.name, "db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
	pf.StringVar(&dbFlags.user, "db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
	pf.StringVar(&dbFlags.password, "db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
	pf.StringVar(&dbFlags.sslmode, "db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")

	userCreateCmd.Flags().String("username", "", "用户名（必填）")
	userCmd.AddCommand(userCreateCmd)
	trashCmd.AddCommand(trashPurgeCmd, trashEnqueueCmd)
	rootCmd.AddCommand(userCmd, trashCmd)
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("DB_NAME")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("DB_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("DB_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
