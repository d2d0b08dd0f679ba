package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lisa-assistant/pkg/config"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var apiURL string
	root := &cobra.Command{
		Use:           "lisa",
		Short:         "LISA 语音助手命令行客户端",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "API 地址（默认 $LISA_API_URL 或 http://localhost:8080）")
	client := func() *Client { return newClient(apiURL) }

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "显示版本",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "lisa cli "+version)
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "健康检查",
			RunE: func(cmd *cobra.Command, _ []string) error {
				out, err := client().health()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(out))
				return nil
			},
		},
		newConfigCmd(),
		newChatCmd(client),
		newHistoryCmd(client),
		&cobra.Command{
			Use:   "end <session_id>",
			Short: "结束会话并删除历史",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := client().endSession(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
				return nil
			},
		},
	)
	return root
}

func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "显示配置概要",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "api.port=%d\n", cfg.API.Port)
			fmt.Fprintf(w, "api.host=%s\n", cfg.API.Host)
			fmt.Fprintf(w, "storage.conversation.type=%s\n", cfg.Storage.Conversation.Type)
			fmt.Fprintf(w, "storage.cache.type=%s\n", cfg.Storage.Cache.Type)
			fmt.Fprintf(w, "storage.object.type=%s\n", cfg.Storage.Object.Type)
			fmt.Fprintf(w, "assistant.max_history=%d\n", cfg.Assistant.MaxHistory)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "configs/api.yaml", "配置文件路径")
	return cmd
}

func newChatCmd(client func() *Client) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "交互式对话（exit/quit 退出）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(client(), sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "复用已有会话 ID")
	return cmd
}

func newHistoryCmd(client func() *Client) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "history <session_id>",
		Short: "输出会话历史",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := client().history(args[0], mode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(msgs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "assistant", "assistant | interview")
	return cmd
}

// runChat 逐行读取输入，每行作为一轮对话
func runChat(c *Client, sessionID string, in io.Reader, out io.Writer) error {
	if sessionID == "" {
		id, err := c.createSession()
		if err != nil {
			return fmt.Errorf("创建会话失败: %w", err)
		}
		sessionID = id
	}
	fmt.Fprintf(out, "session: %s\n", sessionID)

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		msg := strings.TrimSpace(line)
		if msg == "exit" || msg == "quit" {
			return nil
		}
		if msg != "" {
			res, terr := c.sendTurn(sessionID, msg)
			if terr != nil {
				fmt.Fprintf(out, "发送失败: %v\n", terr)
			} else if !printTurn(out, res) {
				return nil
			}
		}
		if err != nil {
			return nil
		}
	}
}

// printTurn 输出本轮帧与回复；会话被结束时返回 false
func printTurn(out io.Writer, res *TurnResult) bool {
	active := true
	for _, f := range res.Events {
		fmt.Fprintf(out, "lisa: %s\n", f.Content)
		if !f.SessionActive {
			active = false
		}
	}
	switch {
	case res.Error != "":
		fmt.Fprintf(out, "lisa: %s\n", res.Error)
	case !res.Silent:
		fmt.Fprintf(out, "lisa: %s\n", res.Reply)
	}
	return active
}
