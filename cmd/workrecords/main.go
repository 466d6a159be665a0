// Точка входа Work Records — API учёта выполненных работ с фотографиями.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/workrecords/internal/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "workrecords",
	Short: "Work Records — API учёта выполненных работ",
	Long: `Work Records хранит записи о выполненных работах (описание, сумма счёта,
фотографии), поддерживает поиск и фильтрацию и считает статистику по суммам.

Без подкоманды запускается HTTP-сервер (аналог "workrecords serve").`,
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"путь к .env файлу (уже заданные переменные окружения не перезаписываются)")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

// setup загружает .env и конфигурацию и настраивает логгер.
func setup() (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	return cfg, config.SetupLogger(cfg), nil
}
