package blocklist

import (
	"log/slog"
	"os"

	"github.com/ProtonMail/gopenpgp/v3/crypto"
	"github.com/cockroachdb/errors"
)

const (
	signatureSuffix = ".asc"

	// PassphraseEnv supplies the signing key passphrase when the
	// configuration file does not.
	PassphraseEnv = EnvPrefix + "SIGNING_PASSPHRASE"
)

// SignaturePath returns the path of the detached signature written next to output.
func SignaturePath(output string) string {
	return output + signatureSuffix
}

// loadSigningKey reads an armored private key and unlocks it if needed.
func loadSigningKey(config *SigningConfig) (*crypto.Key, error) {
	armored, err := os.ReadFile(config.KeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read signing key: %s", config.KeyPath)
	}

	key, err := crypto.NewKeyFromArmored(string(armored))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse signing key: %s", config.KeyPath)
	}
	if !key.IsPrivate() {
		return nil, errors.Newf("signing key is not a private key: %s", config.KeyPath)
	}

	locked, err := key.IsLocked()
	if err != nil {
		return nil, errors.Wrap(err, "failed to inspect signing key")
	}
	if !locked {
		return key, nil
	}

	passphrase := config.Passphrase
	if passphrase == "" {
		passphrase = os.Getenv(PassphraseEnv)
	}
	unlocked, err := key.Unlock([]byte(passphrase))
	key.ClearPrivateParams()
	if err != nil {
		return nil, errors.Wrap(err, "failed to unlock signing key")
	}
	return unlocked, nil
}

// SignDetached returns an armored detached signature of data.
func SignDetached(config *SigningConfig, data []byte) ([]byte, error) {
	key, err := loadSigningKey(config)
	if err != nil {
		return nil, err
	}
	defer key.ClearPrivateParams()

	signer, err := crypto.PGP().Sign().SigningKey(key).Detached().New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signer")
	}
	defer signer.ClearPrivateParams()

	sig, err := signer.Sign(data, crypto.Armor)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign")
	}

	slog.Debug("signed output", "key_id", key.GetHexKeyID())
	return sig, nil
}

// SignFile writes a detached signature of the file at path to SignaturePath(path).
func SignFile(config *SigningConfig, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path is the configured output
	if err != nil {
		return errors.Wrap(err, "SignFile")
	}
	sig, err := SignDetached(config, data)
	if err != nil {
		return err
	}
	if _, err := writeFileAtomic(SignaturePath(path), sig); err != nil {
		return errors.Wrap(err, "SignFile")
	}
	return nil
}
