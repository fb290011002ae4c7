package hcs12

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// HashBytes returns the lowercase hex SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalJSON serializes value as RFC 8785 canonical JSON.
func CanonicalJSON(value any) ([]byte, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	canonical, err := jcs.Transform(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize value: %w", err)
	}
	return canonical, nil
}

// HashModuleInfo returns the value carried in ActionRegistration.Hash for info.
func HashModuleInfo(info ModuleInfo) (string, error) {
	canonical, err := CanonicalJSON(info)
	if err != nil {
		return "", err
	}
	return HashBytes(canonical), nil
}

type HashVerification struct {
	InfoVerified bool     `json:"info_verified"`
	WasmVerified bool     `json:"wasm_verified"`
	JSVerified   bool     `json:"js_verified"`
	Errors       []string `json:"errors,omitempty"`
}

// Verified reports whether every artifact that was checked matched its declared digest.
func (verification HashVerification) Verified() bool {
	return len(verification.Errors) == 0
}

// VerifyActionArtifacts fetches the artifacts an action registration points at and compares
// them against the declared digests. Missing optional artifacts are skipped.
func VerifyActionArtifacts(
	ctx context.Context,
	content ContentRetriever,
	registration ActionRegistration,
) HashVerification {
	verification := HashVerification{Errors: []string{}}

	info := registration.Info
	if info == nil && registration.InfoTID != "" && content != nil {
		fetched, err := fetchModuleInfo(ctx, content, registration.InfoTID)
		if err != nil {
			verification.Errors = append(verification.Errors, err.Error())
		} else {
			info = &fetched
		}
	}
	if info != nil {
		infoHash, err := HashModuleInfo(*info)
		switch {
		case err != nil:
			verification.Errors = append(verification.Errors, err.Error())
		case infoHash != registration.Hash:
			verification.Errors = append(verification.Errors, fmt.Sprintf("module info hash mismatch: expected %s, got %s", registration.Hash, infoHash))
		default:
			verification.InfoVerified = true
		}
	}

	if content == nil {
		verification.Errors = append(verification.Errors, "no content retriever configured for artifact verification")
		return verification
	}

	wasmBytes, err := content.RetrieveContent(ctx, registration.TID)
	if err != nil {
		verification.Errors = append(verification.Errors, fmt.Sprintf("failed to retrieve wasm %s: %v", registration.TID, err))
	} else if wasmHash := HashBytes(wasmBytes); wasmHash != registration.WasmHash {
		verification.Errors = append(verification.Errors, fmt.Sprintf("wasm hash mismatch: expected %s, got %s", registration.WasmHash, wasmHash))
	} else {
		verification.WasmVerified = true
	}

	if registration.JSTID != "" {
		jsBytes, err := content.RetrieveContent(ctx, registration.JSTID)
		if err != nil {
			verification.Errors = append(verification.Errors, fmt.Sprintf("failed to retrieve js wrapper %s: %v", registration.JSTID, err))
		} else if jsHash := HashBytes(jsBytes); jsHash != registration.JSHash {
			verification.Errors = append(verification.Errors, fmt.Sprintf("js hash mismatch: expected %s, got %s", registration.JSHash, jsHash))
		} else {
			verification.JSVerified = true
		}
	}

	return verification
}

func fetchModuleInfo(ctx context.Context, content ContentRetriever, reference string) (ModuleInfo, error) {
	raw, err := content.RetrieveContent(ctx, reference)
	if err != nil {
		return ModuleInfo{}, fmt.Errorf("failed to retrieve module info %s: %w", reference, err)
	}
	var info ModuleInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return ModuleInfo{}, fmt.Errorf("failed to decode module info %s: %w", reference, err)
	}
	return info, nil
}
