package config_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/evteevakb/filestorage/config"
)

func ExampleLoad() {
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("port=%d db=%s storage=%s\n", cfg.Server.Port, cfg.Database.Type, cfg.Storage.Type)
	// Output: port=8080 db=sqlite storage=filesystem
}

func ExampleLoad_environment() {
	_ = os.Setenv("FILESTORAGE_STORAGE_TYPE", "s3")
	_ = os.Setenv("FILESTORAGE_STORAGE_S3_BUCKET", "uploads")
	defer func() {
		_ = os.Unsetenv("FILESTORAGE_STORAGE_TYPE")
		_ = os.Unsetenv("FILESTORAGE_STORAGE_S3_BUCKET")
	}()

	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("storage=%s bucket=%s region=%s\n", cfg.Storage.Type, cfg.Storage.S3.Bucket, cfg.Storage.S3.Region)
	// Output: storage=s3 bucket=uploads region=us-east-1
}

func ExampleFromContext() {
	cfg, _ := config.Load(nil, nil)
	ctx := config.WithContext(context.Background(), cfg)

	got, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(got == cfg)

	_, err = config.FromContext(context.Background())
	fmt.Println(err)
	// Output:
	// true
	// config not found in context
}
