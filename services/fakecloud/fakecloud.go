package main

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/dysonrest/cloud/fakecloud"
	"github.com/relabs-tech/dysonrest/core/logger"
	"github.com/relabs-tech/dysonrest/models"
)

// Service holds the configuration for this service
//
// use FAKECLOUD_ACCOUNT_EMAIL="jane@example.com" and FAKECLOUD_ACCOUNT_PASSWORD="secret"
type Service struct {
	Address         string `env:"FAKECLOUD_ADDRESS,default=:3000" description:"the address the fake cloud listens on"`
	AccountEmail    string `env:"FAKECLOUD_ACCOUNT_EMAIL,optional" description:"email of the seeded account"`
	AccountMobile   string `env:"FAKECLOUD_ACCOUNT_MOBILE,optional" description:"mobile number of the seeded account"`
	AccountPassword string `env:"FAKECLOUD_ACCOUNT_PASSWORD,default=password" description:"password of the seeded account"`
	OTPCode         string `env:"FAKECLOUD_OTP_CODE,default=123456" description:"the one-time code every challenge accepts"`
	LogLevel        string `env:"LOG_LEVEL,optional,default=info" description:"The level used for logger, can be debug, warning, info, error"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}
	level, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.InitLogger(level)
	rlog := logger.Default()

	fake := fakecloud.New()
	fake.SetOTPCode(service.OTPCode)
	account := fake.AddAccount(fakecloud.Account{
		Email:    service.AccountEmail,
		Mobile:   service.AccountMobile,
		Password: service.AccountPassword,
	})
	fake.AddDevice(fakecloud.ConnectedDevice("XX1-EU-ABC1234A", "Living Room", "local-broker-password"))
	fake.AddDevice(fakecloud.LocalDevice("XX2-EU-DEF5678B", "Bedroom"))
	fake.SetPendingRelease("XX1-EU-ABC1234A", models.PendingRelease{Version: "438MPF.00.01.008.0001"})

	rlog.WithFields(logrus.Fields{
		"account": account.ID,
		"email":   logger.Redact(account.Email),
		"mobile":  logger.Redact(account.Mobile),
	}).Info("seeded fake cloud")

	rlog.Infof("listen on %s", service.Address)
	if err := http.ListenAndServe(service.Address, handlers.LoggingHandler(os.Stdout, fake)); err != nil {
		rlog.WithError(err).Fatal("fake cloud stopped")
	}
}
