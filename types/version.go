package types

// Version is the canonical project version.
// The CLI, manifest writers, and notification payloads all report this value.
const Version = "0.4.0"

// ContractVersion is stamped into outbound notification payloads.
// Lockstep with Version.
const ContractVersion = Version

// ManifestVersion is the format tag written into every manifest.
// Readers accept any version; writers always emit this one.
const ManifestVersion = 2
