package main

import "github.com/spf13/viper"

// Config mirrors config.json. The nested sections convert directly into
// the package configs they feed: Database into feed.DatabaseConfig, S3
// into announce.S3Config, Da into announce.DAConfig.
type Config struct {
	Chain struct {
		Name            string `json:"name"`
		Base            uint64 `json:"base"`
		HeightCap       uint64 `json:"heightCap"`
		HashAlgo        string `json:"hashAlgo"`
		IntervalSeconds uint   `json:"intervalSeconds"`
		DataDir         string `json:"dataDir"`
	} `json:"chain"`
	Database struct {
		Host     string `json:"host"`
		User     string `json:"user"`
		Password string `json:"password"`
		DBname   string `json:"dbname"`
		Port     string `json:"port"`
	} `json:"database"`
	Report struct {
		Method  string `json:"method"`
		Timeout uint   `json:"timeout"`
		S3      struct {
			Bucket    string `json:"bucket"`
			Region    string `json:"region"`
			AccessKey string `json:"accessKey"`
			SecretKey string `json:"secretKey"`
		} `json:"s3"`
		Da struct {
			NodeRPC       string  `json:"nodeRPC"`
			AuthToken     string  `json:"authToken"`
			Namespace     string  `json:"namespace"`
			SubmitTimeout string  `json:"submitTimeout"`
			GasPrice      float64 `json:"gasPrice"`
		} `json:"da"`
	} `json:"report"`
	Service struct {
		URL    string `json:"url"`
		Name   string `json:"name"`
		Listen string `json:"listen"`
	} `json:"service"`
	Log struct {
		Level string `json:"level"`
		File  string `json:"file"`
	} `json:"log"`
}

var GlobalConfig Config

// LoadConfig reads the configuration file into GlobalConfig.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	return viper.Unmarshal(&GlobalConfig)
}
