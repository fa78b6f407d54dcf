package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resumeStudio/internal/apiclient"
	"resumeStudio/internal/autosave"
	"resumeStudio/internal/document"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:          "resumectl",
	Short:        "在命令行里编辑 resumeStudio 文档",
	SilenceUsage: true,
}

func newClient() (*apiclient.Client, error) {
	base := strings.TrimRight(settings.GetString("url"), "/")
	if base == "" {
		return nil, errors.New("missing server url: set --url or RESUMECTL_URL")
	}
	return apiclient.New(base,
		apiclient.WithToken(settings.GetString("token")),
		apiclient.WithTimeout(settings.GetDuration("timeout")),
	), nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if settings.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// printNotifier 把用户提示打印到终端。
type printNotifier struct{}

func (printNotifier) Success(msg string) { fmt.Fprintln(os.Stderr, "✓", msg) }

func (printNotifier) Error(msg string, err error) {
	fmt.Fprintf(os.Stderr, "✗ %s: %v\n", msg, err)
}

func openSession(ctx context.Context, client *apiclient.Client, documentID string) (*autosave.AutoSaver, error) {
	policy, err := autosave.ParseErrorPolicy(settings.GetString("on_error"))
	if err != nil {
		return nil, err
	}
	return autosave.New(ctx, documentID, client,
		autosave.WithEntityClient(client),
		autosave.WithNotifier(printNotifier{}),
		autosave.WithErrorPolicy(policy),
		autosave.WithNotifyNoChanges(true),
		autosave.WithLogger(newLogger()),
	)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDocuments(docs []document.Document) {
	for _, d := range docs {
		fmt.Printf("%s\t%s\t%s\t%s\n", d.ID, d.Status, d.UpdatedAt.Format("2006-01-02 15:04"), d.Title)
	}
}

var loginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "登录并打印 access token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		tokens, err := client.Login(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Println(tokens.AccessToken)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <password>",
	Short: "注册账号",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.Register(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("register: %w", err)
		}
		fmt.Println("registered", args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出文档",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		trash, _ := cmd.Flags().GetBool("trash")
		var docs []document.Document
		if trash {
			docs, err = client.ListTrash(cmd.Context())
		} else {
			docs, err = client.ListDocuments(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		printDocuments(docs)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <docID>",
	Short: "打印完整文档",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		public, _ := cmd.Flags().GetBool("public")
		var doc *document.Document
		if public {
			doc, err = client.GetPublicDocument(cmd.Context(), args[0])
		} else {
			doc, err = client.GetDocument(cmd.Context(), args[0])
		}
		if err != nil {
			return fmt.Errorf("get document %s: %w", args[0], err)
		}
		return printJSON(doc)
	},
}

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "新建文档",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		doc, err := client.CreateDocument(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		fmt.Println(doc.ID)
		return nil
	},
}

// documentAction 生成只接收一个文档 id 的子命令。
func documentAction(use, short string, run func(ctx context.Context, c *apiclient.Client, id string) (*document.Document, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <docID>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			doc, err := run(cmd.Context(), client, args[0])
			if err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			if doc != nil {
				fmt.Println(doc.ID, doc.Status)
			}
			return nil
		},
	}
}

var setCmd = &cobra.Command{
	Use:   "set <docID> <field> <json-value>",
	Short: "修改一个顶层字段，只发送变化的部分",
	Long: "值按 JSON 解析，解析失败时当作普通字符串。例如：\n" +
		"  resumectl set <id> title '\"Senior Engineer\"'\n" +
		"  resumectl set <id> themeColor '#1e293b'",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		var value any
		if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
			value = args[2]
		}

		session, err := openSession(cmd.Context(), client, args[0])
		if err != nil {
			return fmt.Errorf("open document %s: %w", args[0], err)
		}
		defer session.Close()

		if err := session.Set(args[1], value); err != nil {
			return err
		}
		return session.Save(cmd.Context())
	},
}

var reorderCmd = &cobra.Command{
	Use:   "reorder <docID> <kind> <entityID> <position>",
	Short: "把子实体移动到指定位置",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := document.ParseEntityKind(args[1])
		if err != nil {
			return err
		}
		id, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entity id %q", args[2])
		}
		to, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid position %q", args[3])
		}

		mode := autosave.PersistBulk
		if perEntity, _ := cmd.Flags().GetBool("per-entity"); perEntity {
			mode = autosave.PersistPerEntity
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		session, err := openSession(cmd.Context(), client, args[0])
		if err != nil {
			return fmt.Errorf("open document %s: %w", args[0], err)
		}
		defer session.Close()

		ref := autosave.Persisted{ID: uint(id)}
		opt := autosave.WithPersistMode(mode)
		switch kind {
		case document.KindExperience:
			return move(cmd.Context(), session, autosave.ExperienceSchema, ref, to, opt)
		case document.KindEducation:
			return move(cmd.Context(), session, autosave.EducationSchema, ref, to, opt)
		case document.KindSkill:
			return move(cmd.Context(), session, autosave.SkillSchema, ref, to, opt)
		case document.KindProject:
			return move(cmd.Context(), session, autosave.ProjectSchema, ref, to, opt)
		case document.KindLanguage:
			return move(cmd.Context(), session, autosave.LanguageSchema, ref, to, opt)
		}
		return fmt.Errorf("unsupported kind %q", kind)
	},
}

func move[T any](ctx context.Context, session *autosave.AutoSaver, schema autosave.Schema[T], ref autosave.Ref, to int, opts ...autosave.ListOption) error {
	list, err := autosave.NewList(session, schema, opts...)
	if err != nil {
		return err
	}
	return list.Move(ctx, ref, to)
}

var renameCategoryCmd = &cobra.Command{
	Use:   "rename-category <docID> <from> <to>",
	Short: "重命名技能分类",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		session, err := openSession(cmd.Context(), client, args[0])
		if err != nil {
			return fmt.Errorf("open document %s: %w", args[0], err)
		}
		defer session.Close()

		skills, err := autosave.NewList(session, autosave.SkillSchema)
		if err != nil {
			return err
		}
		return autosave.RenameCategory(cmd.Context(), skills, args[1], args[2])
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("url", "http://localhost:8080", "API 地址（RESUMECTL_URL）")
	pf.String("token", "", "access token（RESUMECTL_TOKEN）")
	pf.Duration("timeout", 0, "单次请求超时，0 使用默认值（RESUMECTL_TIMEOUT）")
	pf.String("on-error", "keep-local", "保存失败时的处理：keep-local 或 revert（RESUMECTL_ON_ERROR）")
	pf.BoolP("verbose", "v", false, "输出调试日志")

	settings.SetEnvPrefix("RESUMECTL")
	settings.AutomaticEnv()
	for key, flag := range map[string]string{
		"url":      "url",
		"token":    "token",
		"timeout":  "timeout",
		"on_error": "on-error",
		"verbose":  "verbose",
	} {
		if err := settings.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	listCmd.Flags().Bool("trash", false, "列出回收站")
	showCmd.Flags().Bool("public", false, "以匿名方式读取已公开的文档")
	reorderCmd.Flags().Bool("per-entity", false, "逐个实体写回 order，而不是一次 PATCH 整个集合")

	rootCmd.AddCommand(
		loginCmd,
		registerCmd,
		listCmd,
		showCmd,
		createCmd,
		setCmd,
		reorderCmd,
		renameCategoryCmd,
		documentAction("restore", "从回收站恢复", func(ctx context.Context, c *apiclient.Client, id string) (*document.Document, error) {
			return c.RestoreDocument(ctx, id)
		}),
		documentAction("duplicate", "复制文档", func(ctx context.Context, c *apiclient.Client, id string) (*document.Document, error) {
			return c.DuplicateDocument(ctx, id)
		}),
		documentAction("delete", "永久删除文档", func(ctx context.Context, c *apiclient.Client, id string) (*document.Document, error) {
			return nil, c.DeleteDocument(ctx, id)
		}),
	)
}
